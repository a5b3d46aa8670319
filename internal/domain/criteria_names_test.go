package domain

import "testing"

func TestNormalizeVariableName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"patient_has_asthma_inthehistory", "patient_has_asthma"},
		{"patient_has_asthma_now", "patient_has_asthma"},
		{"patient_has_asthma_currently", "patient_has_asthma"},
		{"patient_age_value_recorded_now_in_years", "patient_age_value_recorded_in_years"},
		{"  Patient_Has_Asthma ", "patient_has_asthma"},
		{"plain_condition", "plain_condition"},
	}
	for _, tt := range tests {
		if got := NormalizeVariableName(tt.in); got != tt.want {
			t.Fatalf("NormalizeVariableName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsGenderVariable(t *testing.T) {
	if !IsGenderVariable("patient_sex_is_female_now") {
		t.Fatalf("sex variable not detected")
	}
	if !IsGenderVariable("patient_gender_is_male") {
		t.Fatalf("gender variable not detected")
	}
	if IsGenderVariable("patient_has_diabetes") {
		t.Fatalf("condition mistaken for gender")
	}
}

func TestIgnoredVariable(t *testing.T) {
	if !IgnoredVariable("patient_age_value_recorded_in_months") {
		t.Fatalf("age in months should be ignored")
	}
	if !IgnoredVariable("patient_age_value_recorded_in_days") {
		t.Fatalf("age in days should be ignored")
	}
	if IgnoredVariable("patient_age_value_recorded_in_years") {
		t.Fatalf("age in years must not be ignored")
	}
}

func TestReadableCriterionName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"patient_has_type_2_diabetes_now", "Type 2 diabetes currently"},
		{"patient_has_asthma_inthehistory", "Asthma in the past"},
		{"patient_can_walk_unassisted", "Walk unassisted"},
	}
	for _, tt := range tests {
		if got := ReadableCriterionName(tt.in); got != tt.want {
			t.Fatalf("ReadableCriterionName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
