package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"exam:view",
		"exam:join",
		"attempt:save",
		"attempt:submit",
		"attempt:view-own",
		"user:change_password",
	},
	"teacher": {
		"question:create",
		"question:bank",
		"exam:create",
		"exam:update",
		"exam:view",
		"exam:preview",
		"attempt:view-all",
		"attempt:grade",
		"attempt:reset",
		"asset:upload",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
