// Package dashboard defines the GraphQL queries for the dashboard.
package dashboard

import (
	"github.com/graphql-go/graphql"
	"github.com/leancoach/coach-backend/store"
)

// GetQueryFields returns the dashboard queries to be mounted in the root schema
func GetQueryFields(st store.Store) graphql.Fields {
	return graphql.Fields{
		"dashboard": &graphql.Field{
			Type: DashboardType,
			Args: graphql.FieldConfigArgument{
				"department": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				department, _ := p.Args["department"].(string)
				return ResolveDashboard(p.Context, st, department)
			},
		},
	}
}
