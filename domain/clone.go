package domain

// Clone returns a deep copy sharing no slices or maps with the receiver.
func (w Workspace) Clone() Workspace {
	out := w
	if w.Projects != nil {
		out.Projects = make([]Project, len(w.Projects))
		for i, p := range w.Projects {
			out.Projects[i] = p.Clone()
		}
	}
	if w.Users != nil {
		out.Users = append([]User(nil), w.Users...)
	}
	return out
}

func (p Project) Clone() Project {
	out := p
	if p.SubProjects != nil {
		out.SubProjects = make([]SubProject, len(p.SubProjects))
		for i, sp := range p.SubProjects {
			out.SubProjects[i] = sp.Clone()
		}
	}
	out.BoardData = cloneBoardData(p.BoardData)
	return out
}

func (sp SubProject) Clone() SubProject {
	out := sp
	if sp.EnabledTabs != nil {
		out.EnabledTabs = append([]BoardType(nil), sp.EnabledTabs...)
	}
	out.BoardData = cloneBoardData(sp.BoardData)
	return out
}

func cloneBoardData(m map[BoardType]Board) map[BoardType]Board {
	if m == nil {
		return nil
	}
	out := make(map[BoardType]Board, len(m))
	for bt, b := range m {
		out[bt] = b.Clone()
	}
	return out
}

func (b Board) Clone() Board {
	out := b
	if b.Lists != nil {
		out.Lists = make([]List, len(b.Lists))
		for i, l := range b.Lists {
			out.Lists[i] = l.Clone()
		}
	}
	return out
}

func (l List) Clone() List {
	out := l
	if l.Tasks != nil {
		out.Tasks = make([]Task, len(l.Tasks))
		for i, t := range l.Tasks {
			out.Tasks[i] = t.Clone()
		}
	}
	return out
}

func (t Task) Clone() Task {
	out := t
	if t.ResponsibleUsers != nil {
		out.ResponsibleUsers = append([]string(nil), t.ResponsibleUsers...)
	}
	if t.Checklists != nil {
		out.Checklists = make([]Checklist, len(t.Checklists))
		for i, c := range t.Checklists {
			cc := c
			if c.Items != nil {
				cc.Items = append([]ChecklistItem(nil), c.Items...)
			}
			out.Checklists[i] = cc
		}
	}
	if t.Labels != nil {
		out.Labels = append([]Label(nil), t.Labels...)
	}
	if t.Comments != nil {
		out.Comments = append([]Comment(nil), t.Comments...)
	}
	if t.Activity != nil {
		out.Activity = append([]ActivityEntry(nil), t.Activity...)
	}
	return out
}
