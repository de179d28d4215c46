package domain

// SubjectType differentiates end users vs staff principals.
type SubjectType string

const (
	SubjectTypeUser   SubjectType = "USER"
	SubjectTypeStaff  SubjectType = "STAFF"
	SubjectTypeSystem SubjectType = "SYSTEM"
)

// StaffRole captures the chat-platform role a staff principal holds.
type StaffRole string

const (
	StaffRoleSupport StaffRole = "SUPPORT"
	StaffRoleAdmin   StaffRole = "ADMIN"
)
