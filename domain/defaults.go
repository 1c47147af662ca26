package domain

// Normalize fills in empty collections so consumers always see a usable tree,
// even when the remote payload was missing expected fields. Malformed or
// partial documents degrade to an empty workspace at version 0 rather than
// failing hard. Every container the pass touches is rebuilt, so the input
// value is never mutated through shared backing storage.
func (w Workspace) Normalize() Workspace {
	if w.Users == nil {
		w.Users = []User{}
	}
	if w.Version < 0 {
		w.Version = 0
	}
	projects := make([]Project, len(w.Projects))
	for i, p := range w.Projects {
		projects[i] = p.normalize()
	}
	w.Projects = projects
	return w
}

func (p Project) normalize() Project {
	subs := make([]SubProject, len(p.SubProjects))
	for i, sp := range p.SubProjects {
		subs[i] = sp.normalize()
	}
	p.SubProjects = subs
	if p.BoardData != nil {
		boards := make(map[BoardType]Board, len(p.BoardData))
		for bt, b := range p.BoardData {
			boards[bt] = b.normalize()
		}
		p.BoardData = boards
	}
	return p
}

func (sp SubProject) normalize() SubProject {
	if sp.EnabledTabs == nil {
		sp.EnabledTabs = []BoardType{}
	}
	boards := make(map[BoardType]Board, len(sp.BoardData))
	for bt, b := range sp.BoardData {
		boards[bt] = b.normalize()
	}
	sp.BoardData = boards
	return sp
}

func (b Board) normalize() Board {
	lists := make([]List, len(b.Lists))
	for i, l := range b.Lists {
		if l.Tasks == nil {
			l.Tasks = []Task{}
		}
		lists[i] = l
	}
	b.Lists = lists
	return b
}
