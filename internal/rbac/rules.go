package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"quiz:view",
		"attempt:create",
		"attempt:save",
		"attempt:submit",
		"attempt:view-own",
		"report:view-own",
	},
	"teacher": {
		"quiz:create",
		"quiz:view",
		"quiz:manage",
		"session:create",
		"attempt:view-all",
		"attempt:grade",
		"report:view-all",
	},
	"admin": {
		"*", // everything
	},
}
