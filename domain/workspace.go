package domain

// BoardType identifies one of the typed views attached to a sub-project.
type BoardType string

const (
	BoardKanban BoardType = "kanban"
	BoardTodo   BoardType = "todo"
	BoardFiles  BoardType = "files"
	BoardGoals  BoardType = "goals"
)

// Workspace is the whole document tree. Version is the optimistic-concurrency
// token incremented by the remote store on every accepted write.
type Workspace struct {
	Projects []Project `json:"projects"`
	Users    []User    `json:"users"`
	Version  int64     `json:"version"`
}

// User is a workspace member referenced from tasks by ID.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Project owns its sub-projects exclusively. Deleting a project removes
// everything underneath it.
type Project struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Color       string              `json:"color,omitempty"`
	IsProtected bool                `json:"isProtected,omitempty"`
	Password    string              `json:"password,omitempty"`
	SubProjects []SubProject        `json:"subProjects"`
	BoardData   map[BoardType]Board `json:"boardData,omitempty"`
	Archived    bool                `json:"archived,omitempty"`
	IsArchived  bool                `json:"isArchived,omitempty"`
}

// SubProject belongs to exactly one project.
type SubProject struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	EnabledTabs []BoardType         `json:"enabledTabs"`
	BoardData   map[BoardType]Board `json:"boardData"`
}

// Board holds the ordered lists of one typed view.
type Board struct {
	Lists []List `json:"lists"`
}

// List is an ordered column of tasks. Order is significant.
type List struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Tasks []Task `json:"tasks"`
}

// Task belongs to exactly one list at a time. Membership is a move, never a
// copy.
type Task struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description,omitempty"`
	Priority         string          `json:"priority,omitempty"`
	EndDate          string          `json:"endDate,omitempty"`
	ResponsibleUsers []string        `json:"responsibleUsers,omitempty"`
	Checklists       []Checklist     `json:"checklists,omitempty"`
	Labels           []Label         `json:"labels,omitempty"`
	Comments         []Comment       `json:"comments,omitempty"`
	Activity         []ActivityEntry `json:"activity,omitempty"`
	IsArchived       bool            `json:"isArchived,omitempty"`
}

type Checklist struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Items []ChecklistItem `json:"items"`
}

type ChecklistItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done,omitempty"`
}

type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type Comment struct {
	ID        string `json:"id"`
	AuthorID  string `json:"authorId"`
	Body      string `json:"body"`
	CreatedAt int64  `json:"createdAt"`
}

type ActivityEntry struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}
