package trust

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/pkg/domain"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func cleanDonor() Submission {
	return Submission{
		Handle:     "ravi.kumar",
		Email:      "ravi.kumar@gmail.com",
		Phone:      "9876543210",
		BloodGroup: "O+",
		Address:    "12 Gandhi Road",
		City:       "Coimbatore",
		State:      "Tamil Nadu",
	}
}

func TestScore_CleanDonorAutoApproved(t *testing.T) {
	res := Score(cleanDonor(), domain.RoleDonor, testNow)

	assert.Equal(t, StatusAutoApproved, res.Status)
	assert.Equal(t, 100, res.Score)
	assert.Empty(t, res.Findings)
}

func TestScore_StatusThresholdEquivalence(t *testing.T) {
	// A single 20-point penalty keeps the score at 80, still auto-approved.
	sub := cleanDonor()
	sub.Handle = ""
	res := Score(sub, domain.RoleDonor, testNow)
	assert.Equal(t, 80, res.Score)
	assert.Equal(t, StatusAutoApproved, res.Status)

	// One more point of damage drops below the threshold.
	sub = cleanDonor()
	sub.Handle = ""
	sub.Address = ""
	res = Score(sub, domain.RoleDonor, testNow)
	explanations := func() []string {
		var out []string
		for _, f := range res.Findings {
			out = append(out, f.Reason)
		}
		return out
	}
	assert.Equal(t, 70, res.Score, "findings: %v", explanations())
	assert.Equal(t, StatusFlagged, res.Status)
}

func TestScore_FlooredAtZero(t *testing.T) {
	res := Score(Submission{}, domain.RoleBank, testNow)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, StatusFlagged, res.Status)
	// Penalties keep accumulating as findings even after the floor.
	assert.NotEmpty(t, res.Findings)
}

func TestScore_SuspiciousDonorScenario(t *testing.T) {
	sub := cleanDonor()
	sub.Email = "test@test.com"
	sub.Phone = "1234567890"
	sub.BloodGroup = "Z+"

	res := Score(sub, domain.RoleDonor, testNow)

	assert.Equal(t, StatusFlagged, res.Status)
	assert.Equal(t, 35, res.Score)

	reasons := make([]string, 0, len(res.Findings))
	for _, f := range res.Findings {
		reasons = append(reasons, f.Reason)
	}
	assert.Contains(t, reasons, "Suspicious email pattern detected: test@test.com")
	assert.Contains(t, reasons, "Invalid blood group: Z+")
}

func TestScore_EmailRules(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		penalty int
		reason  string
	}{
		{"missing email short-circuits", "", 30, "Missing email address"},
		{"malformed email", "not-an-email", 25, "Invalid email format"},
		{"placeholder domain", "someone@example.com", 40, "Suspicious email pattern detected: someone@example.com"},
		{"role-pattern address", "admin@admin.com", 40, "Suspicious email pattern detected: admin@admin.com"},
		{"repeated chars before at", "aaaa@mail.com", 40, "Suspicious email pattern detected: aaaa@mail.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := cleanDonor()
			sub.Email = tt.email
			res := Score(sub, domain.RoleDonor, testNow)

			require.NotEmpty(t, res.Findings)
			first := res.Findings[0]
			assert.Equal(t, tt.reason, first.Reason)
			assert.Equal(t, tt.penalty, first.Penalty)
			assert.Equal(t, testNow, first.Timestamp)
		})
	}
}

func TestScore_MalformedEmailAlsoPatternChecked(t *testing.T) {
	// Format and pattern checks are independent once an email is present.
	sub := cleanDonor()
	sub.Email = "bad@test.com."
	res := Score(sub, domain.RoleDonor, testNow)

	require.Len(t, res.Findings, 2)
	assert.Equal(t, "Invalid email format", res.Findings[0].Reason)
	assert.Equal(t, 25, res.Findings[0].Penalty)
	assert.Contains(t, res.Findings[1].Reason, "Suspicious email pattern")
	assert.Equal(t, 40, res.Findings[1].Penalty)
}

func TestScore_PhoneRules(t *testing.T) {
	t.Run("missing phone short-circuits", func(t *testing.T) {
		sub := cleanDonor()
		sub.Phone = ""
		res := Score(sub, domain.RoleDonor, testNow)
		require.Len(t, res.Findings, 1)
		assert.Equal(t, "Missing phone number", res.Findings[0].Reason)
		assert.Equal(t, 15, res.Findings[0].Penalty)
	})

	t.Run("separators are stripped before the digit check", func(t *testing.T) {
		sub := cleanDonor()
		sub.Phone = "(987) 654-3210"
		res := Score(sub, domain.RoleDonor, testNow)
		assert.Empty(t, res.Findings)
	})

	t.Run("wrong digit count", func(t *testing.T) {
		sub := cleanDonor()
		sub.Phone = "12345"
		res := Score(sub, domain.RoleDonor, testNow)
		require.Len(t, res.Findings, 1)
		assert.Equal(t, "Invalid phone number format (should be 10 digits)", res.Findings[0].Reason)
		assert.Equal(t, 20, res.Findings[0].Penalty)
	})

	t.Run("both phone checks can fire together", func(t *testing.T) {
		sub := cleanDonor()
		sub.Phone = "777777777" // nine digits, all repeated
		res := Score(sub, domain.RoleDonor, testNow)
		require.Len(t, res.Findings, 2)
		assert.Equal(t, "Invalid phone number format (should be 10 digits)", res.Findings[0].Reason)
		assert.Equal(t, "Suspicious phone number (repeated digits)", res.Findings[1].Reason)
		assert.Equal(t, 25, res.Findings[1].Penalty)
	})

	t.Run("valid count with long repeat still flagged", func(t *testing.T) {
		sub := cleanDonor()
		sub.Phone = "7777777891"
		res := Score(sub, domain.RoleDonor, testNow)
		require.Len(t, res.Findings, 1)
		assert.Equal(t, "Suspicious phone number (repeated digits)", res.Findings[0].Reason)
	})
}

func TestScore_HandleRules(t *testing.T) {
	tests := []struct {
		name   string
		handle string
	}{
		{"test prefix", "testuser"},
		{"fake prefix", "FakeDonor"},
		{"admin prefix", "admin99"},
		{"keyboard walk", "qwerty12"},
		{"five repeated characters", "bozzzzzo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := cleanDonor()
			sub.Handle = tt.handle
			res := Score(sub, domain.RoleDonor, testNow)
			require.Len(t, res.Findings, 1)
			assert.Equal(t, "Suspicious username pattern: "+tt.handle, res.Findings[0].Reason)
			assert.Equal(t, 30, res.Findings[0].Penalty)
		})
	}

	t.Run("missing handle short-circuits pattern checks", func(t *testing.T) {
		sub := cleanDonor()
		sub.Handle = ""
		res := Score(sub, domain.RoleDonor, testNow)
		require.Len(t, res.Findings, 1)
		assert.Equal(t, "Missing username", res.Findings[0].Reason)
		assert.Equal(t, 20, res.Findings[0].Penalty)
	})
}

func cleanHospital() Submission {
	return Submission{
		Handle:         "citycare",
		Email:          "desk@citycare.org",
		Phone:          "9123456780",
		RegistrationID: "HOSP-2291",
		HospitalType:   "Private",
		ContactPerson:  "Dr. Meena",
		Address:        "7 Hospital Road",
		City:           "Salem",
		Capacity:       "250",
	}
}

func TestScore_HospitalRules(t *testing.T) {
	t.Run("clean hospital passes", func(t *testing.T) {
		res := Score(cleanHospital(), domain.RoleHospital, testNow)
		assert.Equal(t, StatusAutoApproved, res.Status)
		assert.Empty(t, res.Findings)
	})

	t.Run("hospital type is case-insensitive", func(t *testing.T) {
		sub := cleanHospital()
		sub.HospitalType = "GOVERNMENT"
		res := Score(sub, domain.RoleHospital, testNow)
		assert.Empty(t, res.Findings)
	})

	t.Run("unknown hospital type", func(t *testing.T) {
		sub := cleanHospital()
		sub.HospitalType = "franchise"
		res := Score(sub, domain.RoleHospital, testNow)
		require.Len(t, res.Findings, 1)
		assert.Equal(t, "Invalid hospital type: franchise", res.Findings[0].Reason)
		assert.Equal(t, 20, res.Findings[0].Penalty)
	})

	t.Run("missing registration id", func(t *testing.T) {
		sub := cleanHospital()
		sub.RegistrationID = ""
		res := Score(sub, domain.RoleHospital, testNow)
		require.Len(t, res.Findings, 1)
		assert.Equal(t, "Missing hospital registration ID", res.Findings[0].Reason)
		assert.Equal(t, 25, res.Findings[0].Penalty)
	})

	t.Run("capacity bounds", func(t *testing.T) {
		sub := cleanHospital()
		sub.Capacity = "9"
		res := Score(sub, domain.RoleHospital, testNow)
		require.Len(t, res.Findings, 1)
		assert.Equal(t, "Unrealistic hospital capacity: 9", res.Findings[0].Reason)
		assert.Equal(t, 20, res.Findings[0].Penalty)

		sub.Capacity = "lots"
		res = Score(sub, domain.RoleHospital, testNow)
		require.Len(t, res.Findings, 1)
		assert.Equal(t, "Invalid capacity format", res.Findings[0].Reason)
		assert.Equal(t, 15, res.Findings[0].Penalty)

		// Absent capacity is not a violation.
		sub.Capacity = ""
		res = Score(sub, domain.RoleHospital, testNow)
		assert.Empty(t, res.Findings)
	})
}

func TestScore_BankRules(t *testing.T) {
	sub := Submission{
		Handle:         "redcross-blr",
		Email:          "stock@redcross.org",
		Phone:          "9012345678",
		LicenseID:      "LIC-8841",
		OperatingHours: "9am-6pm",
		ContactPerson:  "S. Nair",
		Address:        "4 Cross Street",
		City:           "Bengaluru",
		Capacity:       "5000",
	}

	t.Run("clean bank passes", func(t *testing.T) {
		res := Score(sub, domain.RoleBank, testNow)
		assert.Equal(t, StatusAutoApproved, res.Status)
		assert.Empty(t, res.Findings)
	})

	t.Run("missing license dominates", func(t *testing.T) {
		bad := sub
		bad.LicenseID = ""
		res := Score(bad, domain.RoleBank, testNow)
		require.Len(t, res.Findings, 1)
		assert.Equal(t, "Missing blood bank license ID", res.Findings[0].Reason)
		assert.Equal(t, 30, res.Findings[0].Penalty)
	})

	t.Run("bank capacity window differs from hospitals", func(t *testing.T) {
		bad := sub
		bad.Capacity = "49"
		res := Score(bad, domain.RoleBank, testNow)
		require.Len(t, res.Findings, 1)
		assert.Equal(t, "Unrealistic blood bank capacity: 49", res.Findings[0].Reason)
	})
}

func TestScore_FindingsOrderedByRuleSequence(t *testing.T) {
	sub := Submission{
		Handle:     "testname",
		Email:      "x@example.com",
		Phone:      "123",
		BloodGroup: "Q-",
	}
	res := Score(sub, domain.RoleDonor, testNow)

	var reasons []string
	for _, f := range res.Findings {
		reasons = append(reasons, f.Reason)
	}
	assert.Equal(t, []string{
		"Suspicious email pattern detected: x@example.com",
		"Invalid phone number format (should be 10 digits)",
		"Suspicious username pattern: testname",
		"Invalid blood group: Q-",
		"Missing address",
		"Missing city",
		"Missing state",
	}, reasons)
}

func TestScore_BoundsInvariant(t *testing.T) {
	subs := []Submission{
		{},
		cleanDonor(),
		cleanHospital(),
		{Handle: "aaaaa", Email: "aaaa@test.com", Phone: "00000000000"},
	}
	for _, sub := range subs {
		for _, role := range []domain.Role{domain.RoleDonor, domain.RoleHospital, domain.RoleBank} {
			res := Score(sub, role, testNow)
			assert.GreaterOrEqual(t, res.Score, 0)
			assert.LessOrEqual(t, res.Score, 100)
			assert.Equal(t, res.Score >= 80, res.Status == StatusAutoApproved)
		}
	}
}
