package billing

// UnassignedName labels entries whose project is not in the directory.
const UnassignedName = "Unassigned"

// Directory is an immutable lookup over a snapshot of clients and projects.
type Directory struct {
	clients  map[ClientID]Client
	projects map[ProjectID]Project
	order    []ProjectID
}

// NewDirectory indexes clients and projects by id. Later duplicates win.
func NewDirectory(clients []Client, projects []Project) *Directory {
	d := &Directory{
		clients:  make(map[ClientID]Client, len(clients)),
		projects: make(map[ProjectID]Project, len(projects)),
	}
	for _, c := range clients {
		d.clients[c.ID] = c
	}
	for _, p := range projects {
		if _, seen := d.projects[p.ID]; !seen {
			d.order = append(d.order, p.ID)
		}
		d.projects[p.ID] = p
	}
	return d
}

// Project returns the project with the given id, or nil.
func (d *Directory) Project(id ProjectID) *Project {
	if d == nil {
		return nil
	}
	p, ok := d.projects[id]
	if !ok {
		return nil
	}
	return &p
}

// Client returns the client with the given id, or nil.
func (d *Directory) Client(id ClientID) *Client {
	if d == nil {
		return nil
	}
	c, ok := d.clients[id]
	if !ok {
		return nil
	}
	return &c
}

// ProjectName returns the project's name, or UnassignedName.
func (d *Directory) ProjectName(id ProjectID) string {
	if p := d.Project(id); p != nil {
		return p.Name
	}
	return UnassignedName
}

// ClientName returns the client's display name. Unknown clients are named
// by their id, which is how the directory addressed them before clients
// had records of their own.
func (d *Directory) ClientName(id ClientID) string {
	if c := d.Client(id); c != nil && c.Name != "" {
		return c.Name
	}
	return string(id)
}

// ProjectsOf returns the client's projects in directory order.
func (d *Directory) ProjectsOf(id ClientID) []Project {
	if d == nil {
		return nil
	}
	var out []Project
	for _, pid := range d.order {
		if p := d.projects[pid]; p.ClientID == id {
			out = append(out, p)
		}
	}
	return out
}
