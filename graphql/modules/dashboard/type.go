// Package dashboard defines the GraphQL types for the application dashboard.
package dashboard

import (
	"github.com/graphql-go/graphql"
)

// StatusCountsType holds the number of live documents per status
var StatusCountsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "StatusCounts",
	Fields: graphql.Fields{
		"draft":       &graphql.Field{Type: graphql.Int},
		"in_progress": &graphql.Field{Type: graphql.Int},
		"completed":   &graphql.Field{Type: graphql.Int},
		"archived":    &graphql.Field{Type: graphql.Int},
	},
})

// ActivityType represents one audit log row
var ActivityType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Activity",
	Fields: graphql.Fields{
		"key":          &graphql.Field{Type: graphql.String},
		"document_key": &graphql.Field{Type: graphql.String},
		"user_key":     &graphql.Field{Type: graphql.String},
		"action":       &graphql.Field{Type: graphql.String},
		"created_at":   &graphql.Field{Type: graphql.String},
	},
})

// DashboardType represents the overview cards and the recent activity feed
var DashboardType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Dashboard",
	Fields: graphql.Fields{
		"total_documents": &graphql.Field{Type: graphql.Int},
		"by_status":       &graphql.Field{Type: StatusCountsType},
		"recent_activity": &graphql.Field{Type: graphql.NewList(ActivityType)},
	},
})
