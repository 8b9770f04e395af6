// Package documents defines the GraphQL types for A3 documents.
package documents

import (
	"github.com/graphql-go/graphql"
	"github.com/leancoach/coach-backend/model"
)

// StatusEnum lists the document lifecycle states
var StatusEnum = graphql.NewEnum(graphql.EnumConfig{
	Name: "A3Status",
	Values: graphql.EnumValueConfigMap{
		"draft":       &graphql.EnumValueConfig{Value: string(model.StatusDraft)},
		"in_progress": &graphql.EnumValueConfig{Value: string(model.StatusInProgress)},
		"completed":   &graphql.EnumValueConfig{Value: string(model.StatusCompleted)},
		"archived":    &graphql.EnumValueConfig{Value: string(model.StatusArchived)},
	},
})

// SectionType is one of the eight regions of a document
var SectionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "A3Section",
	Fields: graphql.Fields{
		"section_type": &graphql.Field{Type: graphql.String},
		"title":        &graphql.Field{Type: graphql.String},
		"content":      &graphql.Field{Type: graphql.String},
		"updated_by":   &graphql.Field{Type: graphql.String},
		"updated_at":   &graphql.Field{Type: graphql.String},
	},
})

// DocumentType is the summary row used in listings
var DocumentType = graphql.NewObject(graphql.ObjectConfig{
	Name: "A3Document",
	Fields: graphql.Fields{
		"key":            &graphql.Field{Type: graphql.String},
		"title":          &graphql.Field{Type: graphql.String},
		"status":         &graphql.Field{Type: StatusEnum},
		"department_key": &graphql.Field{Type: graphql.String},
		"author_key":     &graphql.Field{Type: graphql.String},
		"created_at":     &graphql.Field{Type: graphql.String},
		"updated_at":     &graphql.Field{Type: graphql.String},
	},
})

// DocumentDetailType is a single document with its sections
var DocumentDetailType = graphql.NewObject(graphql.ObjectConfig{
	Name: "A3DocumentDetail",
	Fields: graphql.Fields{
		"key":            &graphql.Field{Type: graphql.String},
		"title":          &graphql.Field{Type: graphql.String},
		"status":         &graphql.Field{Type: StatusEnum},
		"department_key": &graphql.Field{Type: graphql.String},
		"author_key":     &graphql.Field{Type: graphql.String},
		"created_at":     &graphql.Field{Type: graphql.String},
		"updated_at":     &graphql.Field{Type: graphql.String},
		"sections":       &graphql.Field{Type: graphql.NewList(SectionType)},
		"comment_count":  &graphql.Field{Type: graphql.Int},
	},
})
