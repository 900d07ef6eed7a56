package catalog

// Name is a permission name. Callers check permissions using these constants
// rather than free-form strings so that a misspelled capability is a compile
// error, not a silent deny.
type Name string

// Permission names, grouped by category.
const (
	TasksCreate Name = "tasks.create"
	TasksEdit   Name = "tasks.edit"
	TasksDelete Name = "tasks.delete"
	TasksAssign Name = "tasks.assign"

	EventsCreate Name = "events.create"
	EventsEdit   Name = "events.edit"
	EventsDelete Name = "events.delete"

	MembersInvite Name = "members.invite"
	MembersRemove Name = "members.remove"

	TagsManage Name = "tags.manage"

	ResourcesUpload Name = "resources.upload"
	ResourcesDelete Name = "resources.delete"

	SkillsAssignSelf   Name = "skills.assign_self"
	SkillsAssignOthers Name = "skills.assign_others"

	OrgEditSettings Name = "org.edit_settings"
)

// Entry describes one catalog permission
type Entry struct {
	Name        Name
	Description string
	Category    string
}

var entries = []Entry{
	{TasksCreate, "Create tasks", "tasks"},
	{TasksEdit, "Edit any task", "tasks"},
	{TasksDelete, "Delete tasks", "tasks"},
	{TasksAssign, "Assign tasks to members", "tasks"},
	{EventsCreate, "Create events", "events"},
	{EventsEdit, "Edit events", "events"},
	{EventsDelete, "Delete events", "events"},
	{MembersInvite, "Invite new members", "members"},
	{MembersRemove, "Remove members", "members"},
	{TagsManage, "Create, edit and delete tags", "tags"},
	{ResourcesUpload, "Upload shared resources", "resources"},
	{ResourcesDelete, "Delete shared resources", "resources"},
	{SkillsAssignSelf, "Assign skills to yourself", "skills"},
	{SkillsAssignOthers, "Assign skills to other members", "skills"},
	{OrgEditSettings, "Edit organization settings", "organization"},
}

var nameSet = func() map[Name]struct{} {
	s := make(map[Name]struct{}, len(entries))
	for _, e := range entries {
		s[e.Name] = struct{}{}
	}
	return s
}()

// All returns every catalog entry in declaration order. The returned slice is
// a copy; callers may modify it.
func All() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Valid reports whether name is a known catalog permission
func Valid(name Name) bool {
	_, ok := nameSet[name]
	return ok
}

// Categories returns the distinct categories in declaration order
func Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range entries {
		if _, ok := seen[e.Category]; ok {
			continue
		}
		seen[e.Category] = struct{}{}
		out = append(out, e.Category)
	}
	return out
}
