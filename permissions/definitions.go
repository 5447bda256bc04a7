package permissions

// PermissionScope defines the context in which a permission applies
type PermissionScope string

const (
	ScopeGlobal PermissionScope = "global" // applies system-wide
)

const (
	// SubmissionCreate is the contributor capability: uploading images for classification.
	SubmissionCreate = "submission.create"
	// UserManage marks account administrators.
	UserManage = "user.manage"
)

// PermissionDefinition describes a single, specific permission
type PermissionDefinition struct {
	Key         string          `json:"key"`         // unique key, e.g., "submission.create"
	Name        string          `json:"name"`        // friendly name, e.g., "Create Submission"
	Description string          `json:"description"` // detailed description of what the permission allows
	Scope       PermissionScope `json:"scope"`
}

// PermissionGroupDefinition groups related permissions
type PermissionGroupDefinition struct {
	Key         string                 `json:"key"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Permissions []PermissionDefinition `json:"permissions"`
}

// DefinedPermissionGroups holds all statically defined permission groups and their permissions.
// Browsing submissions and labels needs no permission beyond being authenticated.
var DefinedPermissionGroups = []PermissionGroupDefinition{
	{
		Key:         "submission",
		Name:        "Submissions",
		Description: "Permissions related to classifying tissue patches.",
		Permissions: []PermissionDefinition{
			{
				Key:         SubmissionCreate,
				Name:        "Contributor",
				Description: "Allows uploading images for classification and storing the results.",
				Scope:       ScopeGlobal,
			},
		},
	},
	{
		Key:         "user",
		Name:        "User Management",
		Description: "Permissions related to account administration.",
		Permissions: []PermissionDefinition{
			{
				Key:         UserManage,
				Name:        "Administrator",
				Description: "Allows reading the permission key catalogue used by the user management CLI.",
				Scope:       ScopeGlobal,
			},
		},
	},
}

var (
	allPermissionKeysMap map[string]PermissionDefinition
	allPermissionKeys    []string
)

func init() {
	allPermissionKeysMap = make(map[string]PermissionDefinition)
	for _, group := range DefinedPermissionGroups {
		for _, perm := range group.Permissions {
			allPermissionKeysMap[perm.Key] = perm
			allPermissionKeys = append(allPermissionKeys, perm.Key)
		}
	}
}

// GetAllPermissionKeys returns a slice of all unique permission string keys
func GetAllPermissionKeys() []string {
	// return a copy to prevent modification of the internal slice
	keys := make([]string, len(allPermissionKeys))
	copy(keys, allPermissionKeys)
	return keys
}

// IsValidPermissionKey checks if a given permission key is defined
func IsValidPermissionKey(key string) bool {
	_, ok := allPermissionKeysMap[key]
	return ok
}

// GetPermissionDefinition retrieves a specific permission definition by its key.
func GetPermissionDefinition(key string) (PermissionDefinition, bool) {
	def, ok := allPermissionKeysMap[key]
	return def, ok
}
