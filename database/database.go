// Package database - Handles all interaction with ArangoDB
package database

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DBConnection is the structure that defined the database engine and collections
type DBConnection struct {
	Collections map[string]arangodb.Collection
	Database    arangodb.Database
}

// Config holds the ArangoDB connection settings
type Config struct {
	URL      string
	User     string
	Password string
	Database string

	// MaxElapsed bounds connection retries. Zero retries forever.
	MaxElapsed time.Duration
}

// Collection names
const (
	ColOrgs         = "orgs"
	ColDepartments  = "departments"
	ColUsers        = "users"
	ColDocuments    = "a3_documents"
	ColSections     = "a3_sections"
	ColComments     = "comments"
	ColActivity     = "activity_log"
	ColChatMessages = "chat_messages"
	ColInvitations  = "invitations"
)

// CollectionNames lists every document collection the service uses
var CollectionNames = []string{
	ColOrgs, ColDepartments, ColUsers, ColDocuments, ColSections,
	ColComments, ColActivity, ColChatMessages, ColInvitations,
}

// Define a struct to hold the index definition
type indexConfig struct {
	Collection string
	IdxName    string
	Fields     []string
	Unique     bool
	Sparse     bool
}

var indexes = []indexConfig{
	{Collection: ColOrgs, IdxName: "orgs_slug_unique", Fields: []string{"slug"}, Unique: true},

	{Collection: ColDepartments, IdxName: "departments_org", Fields: []string{"org_key", "deleted_at"}},

	// email is stored normalized, so a plain unique index is case-insensitive
	{Collection: ColUsers, IdxName: "users_email_unique", Fields: []string{"email"}, Unique: true},
	{Collection: ColUsers, IdxName: "users_org", Fields: []string{"org_key"}},

	{Collection: ColDocuments, IdxName: "documents_org_department", Fields: []string{"org_key", "department_key"}},
	{Collection: ColDocuments, IdxName: "documents_org_updated", Fields: []string{"org_key", "updated_at"}},
	{Collection: ColDocuments, IdxName: "documents_author", Fields: []string{"author_key"}},

	{Collection: ColSections, IdxName: "sections_document_type_unique", Fields: []string{"document_key", "section_type"}, Unique: true},

	{Collection: ColComments, IdxName: "comments_document", Fields: []string{"document_key", "created_at"}},

	{Collection: ColActivity, IdxName: "activity_org_created", Fields: []string{"org_key", "created_at"}},
	{Collection: ColActivity, IdxName: "activity_document_created", Fields: []string{"document_key", "created_at"}},

	{Collection: ColChatMessages, IdxName: "chat_thread", Fields: []string{"document_key", "user_key", "seq"}},

	{Collection: ColInvitations, IdxName: "invitations_token_unique", Fields: []string{"token"}, Unique: true},
	{Collection: ColInvitations, IdxName: "invitations_expires", Fields: []string{"expires_at"}},
}

// InitLogger sets up the Zap Logger to log to the console in a human readable format
func InitLogger() *zap.Logger {
	return InitLoggerLevel("info")
}

// InitLoggerLevel is InitLogger with a configurable minimum level
func InitLoggerLevel(level string) *zap.Logger {
	prodConfig := zap.NewProductionConfig()
	prodConfig.Encoding = "console"
	prodConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	prodConfig.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		prodConfig.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := prodConfig.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func dbConnectionConfig(endpoint connection.Endpoint, dbuser string, dbpass string) connection.HttpConfiguration {
	return connection.HttpConfiguration{
		Authentication: connection.NewBasicAuth(dbuser, dbpass),
		Endpoint:       endpoint,
		ContentType:    connection.ApplicationJSON,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // #nosec G402
			},
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 90 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// InitializeDatabase connects to the db engine with backoff retry and makes sure the
// database, its collections and indexes exist
func InitializeDatabase(ctx context.Context, cfg Config, logger *zap.Logger) (DBConnection, error) {
	const initialInterval = 10 * time.Second
	const maxInterval = 2 * time.Minute

	var client arangodb.Client

	//
	// Database connection with backoff retry
	//

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialInterval
	bo.MaxInterval = maxInterval
	bo.MaxElapsedTime = cfg.MaxElapsed

	err := backoff.RetryNotify(func() error {
		logger.Info("Attempting to connect to ArangoDB", zap.String("url", cfg.URL))
		endpoint := connection.NewRoundRobinEndpoints([]string{cfg.URL})
		conn := connection.NewHttpConnection(dbConnectionConfig(endpoint, cfg.User, cfg.Password))

		client = arangodb.NewClient(conn)

		versionInfo, err := client.Version(ctx)
		if err != nil {
			return err
		}

		logger.Sugar().Infof("Database has version '%s' and license '%s'", versionInfo.Version, versionInfo.License)
		return nil

	}, backoff.WithContext(bo, ctx), func(err error, wait time.Duration) {
		logger.Warn("Retrying connection to ArangoDB", zap.Error(err), zap.Duration("wait", wait))
	})
	if err != nil {
		return DBConnection{}, fmt.Errorf("connect to arangodb: %w", err)
	}

	//
	// Database creation
	//

	db, err := ensureDatabase(ctx, client, cfg.Database)
	if err != nil {
		return DBConnection{}, err
	}

	//
	// Collection creation for document storage
	//

	collections := make(map[string]arangodb.Collection, len(CollectionNames))
	for _, name := range CollectionNames {
		col, err := ensureCollection(ctx, db, name)
		if err != nil {
			return DBConnection{}, err
		}
		collections[name] = col
	}

	//
	// Index creation
	//

	for _, idx := range indexes {
		created, err := ensureIndex(ctx, collections[idx.Collection], idx)
		if err != nil {
			return DBConnection{}, fmt.Errorf("create index %s: %w", idx.IdxName, err)
		}
		if created {
			logger.Sugar().Infof("Created index: %s on %s%v", idx.IdxName, idx.Collection, idx.Fields)
		}
	}

	logger.Info("Database initialization complete", zap.String("database", cfg.Database))

	return DBConnection{
		Database:    db,
		Collections: collections,
	}, nil
}

func ensureDatabase(ctx context.Context, client arangodb.Client, name string) (arangodb.Database, error) {
	exists, err := client.DatabaseExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check database: %w", err)
	}
	if exists {
		var options arangodb.GetDatabaseOptions
		db, err := client.GetDatabase(ctx, name, &options)
		if err != nil {
			return nil, fmt.Errorf("get database: %w", err)
		}
		return db, nil
	}
	db, err := client.CreateDatabase(ctx, name, nil)
	if err != nil {
		return nil, fmt.Errorf("create database: %w", err)
	}
	return db, nil
}

func ensureCollection(ctx context.Context, db arangodb.Database, name string) (arangodb.Collection, error) {
	exists, err := db.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check collection %s: %w", name, err)
	}
	if exists {
		var options arangodb.GetCollectionOptions
		col, err := db.GetCollection(ctx, name, &options)
		if err != nil {
			return nil, fmt.Errorf("use collection %s: %w", name, err)
		}
		return col, nil
	}
	col, err := db.CreateCollectionV2(ctx, name, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}
	return col, nil
}

func ensureIndex(ctx context.Context, col arangodb.Collection, idx indexConfig) (bool, error) {
	if existing, err := col.Indexes(ctx); err == nil {
		for _, index := range existing {
			if index.Name == idx.IdxName {
				return false, nil
			}
		}
	}

	unique, sparse := idx.Unique, idx.Sparse
	indexOptions := arangodb.CreatePersistentIndexOptions{
		Unique: &unique,
		Sparse: &sparse,
		Name:   idx.IdxName,
	}
	_, created, err := col.EnsurePersistentIndex(ctx, idx.Fields, &indexOptions)
	return created, err
}
