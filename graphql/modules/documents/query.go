// Package documents defines the GraphQL queries for A3 documents.
package documents

import (
	"github.com/graphql-go/graphql"
	"github.com/leancoach/coach-backend/store"
)

// GetQueryFields returns the document queries to be mounted in the root schema
func GetQueryFields(st store.Store) graphql.Fields {
	return graphql.Fields{
		"documents": &graphql.Field{
			Type: graphql.NewList(DocumentType),
			Args: graphql.FieldConfigArgument{
				"department": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				"status":     &graphql.ArgumentConfig{Type: StatusEnum},
				"limit":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: store.DefaultListLimit},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				department, _ := p.Args["department"].(string)
				status, _ := p.Args["status"].(string)
				limit, _ := p.Args["limit"].(int)
				return ResolveDocuments(p.Context, st, department, status, limit)
			},
		},
		"document": &graphql.Field{
			Type: DocumentDetailType,
			Args: graphql.FieldConfigArgument{
				"key": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				key := p.Args["key"].(string)
				doc, err := ResolveDocument(p.Context, st, key)
				if doc == nil {
					return nil, err
				}
				return doc, nil
			},
		},
	}
}
