package domain

// Role identifies what kind of participant an account is.
type Role string

const (
	RoleDonor    Role = "donor"
	RoleHospital Role = "hospital"
	RoleBank     Role = "bank"
	RoleAdmin    Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleDonor, RoleHospital, RoleBank, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }
