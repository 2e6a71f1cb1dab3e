package domain

// BloodGroup is one of the eight ABO/Rh combinations.
type BloodGroup string

const (
	APos  BloodGroup = "A+"
	ANeg  BloodGroup = "A-"
	BPos  BloodGroup = "B+"
	BNeg  BloodGroup = "B-"
	ABPos BloodGroup = "AB+"
	ABNeg BloodGroup = "AB-"
	OPos  BloodGroup = "O+"
	ONeg  BloodGroup = "O-"
)

// AllBloodGroups returns the eight valid groups in display order.
func AllBloodGroups() []BloodGroup {
	return []BloodGroup{APos, ANeg, BPos, BNeg, ABPos, ABNeg, OPos, ONeg}
}

func (bg BloodGroup) IsValid() bool {
	switch bg {
	case APos, ANeg, BPos, BNeg, ABPos, ABNeg, OPos, ONeg:
		return true
	}
	return false
}

func (bg BloodGroup) String() string {
	return string(bg)
}
