package models

// GraphNode is a domain-agnostic node taken from a query result, ready for JSON.
type GraphNode struct {
	// ID is the ElementId Neo4j assigned to the node.
	ID string `json:"id"`

	// Labels attached to the node (e.g., ["Worker"]).
	Labels []string `json:"labels"`

	Properties map[string]interface{} `json:"properties"`
}

// Name returns the node's "name" property, or "" when it has none.
func (n *GraphNode) Name() string {
	name, _ := n.Properties["name"].(string)
	return name
}

// Edge is a relationship between two GraphNodes, referenced by ElementId.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`

	// Type is the relationship's type (e.g., "WorksIn").
	Type string `json:"type"`

	Properties map[string]interface{} `json:"properties"`
}

// GraphResult is the de-duplicated set of nodes and edges a graph query returned.
type GraphResult struct {
	Nodes []*GraphNode `json:"nodes"`
	Edges []*Edge      `json:"edges"`
}

// Node looks a node up by ElementId.
func (g *GraphResult) Node(id string) (*GraphNode, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}
