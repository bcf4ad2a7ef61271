// Package models holds the entities stored in the staff graph.
//
// The `graph` tags tell the neostaff repository how each field maps to a node property
// and which fields make up the node's identity (`key`).
package models

// RelWorksIn is the type of the relationship pointing from a Worker to its Company.
const RelWorksIn = "WorksIn"

// Company is stored as a `:Company` node and identified by its name.
type Company struct {
	Name string `graph:"key,property:name" validate:"required"`
}

// Worker is stored as a `:Worker` node. A worker is identified by the combination of
// name, surname and email; two workers may share any one of them.
type Worker struct {
	Name    string `graph:"key,property:name" validate:"required"`
	Surname string `graph:"key,property:surname" validate:"required"`
	Email   string `graph:"key,property:email" validate:"required,email"`
}

// FullName is the worker's name and surname separated by a space.
func (w Worker) FullName() string {
	return w.Name + " " + w.Surname
}
