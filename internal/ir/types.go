package ir

// SceneSpec is a compiled scene declaration: node types, node instances and
// the routes connecting them.
type SceneSpec struct {
	Name   string      `json:"name"`
	Types  []TypeDecl  `json:"types"`
	Nodes  []NodeDecl  `json:"nodes"`
	Routes []RouteDecl `json:"routes"`
}

// TypeDecl declares a node type as a subset of a kind's interfaces. An empty
// interface list requests every supported interface.
type TypeDecl struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Interfaces []InterfaceDecl `json:"interfaces,omitempty"`
}

// InterfaceDecl is the textual form of one interface.
type InterfaceDecl struct {
	Category string `json:"category"` // field, exposedField, eventIn, eventOut
	Type     string `json:"type"`     // SFBool, MFNode, ...
	Name     string `json:"name"`
}

// NodeDecl declares one node instance. Type names a declared type or, when
// no type has that ID, a kind used with its full interface set.
type NodeDecl struct {
	Name   string         `json:"name"` // DEF name
	Type   string         `json:"type"`
	Fields map[string]any `json:"fields,omitempty"` // node-valued fields hold DEF names
}

// RouteDecl connects FromNode.FromEvent to ToNode.ToEvent by DEF name.
type RouteDecl struct {
	FromNode  string `json:"from_node"`
	FromEvent string `json:"from_event"`
	ToNode    string `json:"to_node"`
	ToEvent   string `json:"to_event"`
}

// String renders the route in VRML form.
func (r RouteDecl) String() string {
	return r.FromNode + "." + r.FromEvent + " TO " + r.ToNode + "." + r.ToEvent
}
