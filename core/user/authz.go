package user

// Action names an operation subject to role-based authorization.
type Action string

const (
	ActionViewEvents         Action = "viewEvents"
	ActionCreateEvent        Action = "createEvent"
	ActionRegisterStudent    Action = "registerStudent"
	ActionCancelRegistration Action = "cancelRegistration"
	ActionMarkAttendance     Action = "markAttendance"
	ActionViewReports        Action = "viewReports"
	ActionExportReports      Action = "exportReports"
	ActionNotifyAttendees    Action = "notifyAttendees"
	ActionManageStudents     Action = "manageStudents"
	ActionManageUsers        Action = "manageUsers"
	ActionSelfRegister       Action = "selfRegister"
)

// volunteerActions is the capability set granted to volunteers.
// Admins are granted everything.
var volunteerActions = map[Action]struct{}{
	ActionViewEvents:     {},
	ActionMarkAttendance: {},
	ActionViewReports:    {},
	ActionSelfRegister:   {},
}

// Can reports whether the given role is permitted to perform action.
func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleVolunteer:
		_, ok := volunteerActions[action]
		return ok
	}
	return false
}
