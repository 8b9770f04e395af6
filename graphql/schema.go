// Package graphql assembles the read-side GraphQL schema from its modules.
package graphql

import (
	"github.com/graphql-go/graphql"
	"github.com/leancoach/coach-backend/graphql/modules/dashboard"
	"github.com/leancoach/coach-backend/graphql/modules/documents"
	"github.com/leancoach/coach-backend/store"
)

// CreateSchema builds the root query from the documents and dashboard modules
func CreateSchema(st store.Store) (graphql.Schema, error) {
	fields := graphql.Fields{}
	for name, f := range documents.GetQueryFields(st) {
		fields[name] = f
	}
	for name, f := range dashboard.GetQueryFields(st) {
		fields[name] = f
	}

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: fields,
		}),
	})
}
