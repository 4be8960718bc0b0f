package rbac

const (
	PermExamList       = "exam:list"
	PermAttemptStart   = "attempt:start"
	PermAttemptSubmit  = "attempt:submit"
	PermResultsViewOwn = "results:view-own"
	PermResultsRelease = "results:release"
	PermResultsViewAll = "results:view-exam"
)

// Default policy. Institutes act only on exams they own; that check lives
// with the data, not here.
var RolePermissions = map[string][]string{
	RoleStudent: {
		PermExamList,
		PermAttemptStart,
		PermAttemptSubmit,
		PermResultsViewOwn,
	},
	RoleInstitute: {
		PermResultsRelease,
		PermResultsViewAll,
	},
	RoleAdmin: {
		"*", // everything
	},
}
