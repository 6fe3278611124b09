package database

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/rs/zerolog"
)

// CassandraConfig holds the connection settings for the cluster
type CassandraConfig struct {
	Hosts    []string
	Port     int
	Keyspace string
	Username string
	Password string
	Timeout  time.Duration
}

// OpenCassandra connects to the cluster, verifies the connection and makes
// sure the schema exists
func OpenCassandra(ctx context.Context, cfg CassandraConfig, logger zerolog.Logger) (*gocql.Session, error) {
	if err := ensureKeyspace(cfg, logger); err != nil {
		return nil, err
	}

	cluster := newCluster(cfg)
	cluster.Keyspace = cfg.Keyspace

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Cassandra: %w", err)
	}

	if err := HealthCheck(ctx, session); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to test Cassandra connection: %w", err)
	}

	if err := EnsureSchema(ctx, session); err != nil {
		session.Close()
		return nil, err
	}

	logger.Info().Strs("hosts", cfg.Hosts).Str("keyspace", cfg.Keyspace).Msg("cassandra session initialized")
	return session, nil
}

func newCluster(cfg CassandraConfig) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Port = cfg.Port
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cluster.Consistency = gocql.Quorum
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.Timeout = timeout
	cluster.ConnectTimeout = timeout
	cluster.RetryPolicy = &gocql.SimpleRetryPolicy{NumRetries: 3}
	cluster.NumConns = 10
	cluster.MaxWaitSchemaAgreement = 2 * time.Minute
	return cluster
}

// ensureKeyspace creates the keyspace with a session that is not bound to it
func ensureKeyspace(cfg CassandraConfig, logger zerolog.Logger) error {
	session, err := newCluster(cfg).CreateSession()
	if err != nil {
		return fmt.Errorf("failed to connect to Cassandra: %w", err)
	}
	defer session.Close()

	stmt := fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS %s
		WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`, cfg.Keyspace)
	if err := session.Query(stmt).Exec(); err != nil {
		return fmt.Errorf("failed to create keyspace %s: %w", cfg.Keyspace, err)
	}
	logger.Debug().Str("keyspace", cfg.Keyspace).Msg("keyspace ready")
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS offers (
		id text PRIMARY KEY,
		owner_id text,
		origin_city text,
		origin_country text,
		destination_city text,
		destination_country text,
		departure_date text,
		departure_time text,
		flight_number text,
		airline text,
		available_weight_kg double,
		price_per_kg double,
		boosted boolean,
		status text,
		created_at timestamp,
		updated_at timestamp
	)`,
	`CREATE INDEX IF NOT EXISTS offers_owner_idx ON offers (owner_id)`,
	`CREATE INDEX IF NOT EXISTS offers_status_idx ON offers (status)`,
	`CREATE TABLE IF NOT EXISTS requests (
		id text PRIMARY KEY,
		owner_id text,
		origin_city text,
		origin_country text,
		destination_city text,
		destination_country text,
		needed_by_date text,
		package_weight_kg double,
		package_description text,
		declared_value double,
		special_instructions text,
		status text,
		created_at timestamp
	)`,
	`CREATE INDEX IF NOT EXISTS requests_owner_idx ON requests (owner_id)`,
	`CREATE INDEX IF NOT EXISTS requests_status_idx ON requests (status)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id text PRIMARY KEY,
		request_id text,
		offer_id text,
		sender_id text,
		traveler_id text,
		agreed_weight_kg double,
		agreed_price double,
		status text,
		contact_unlocked boolean,
		unlocked_by text,
		unlocked_at timestamp,
		created_at timestamp,
		updated_at timestamp
	)`,
	`CREATE INDEX IF NOT EXISTS matches_request_idx ON matches (request_id)`,
	`CREATE TABLE IF NOT EXISTS matches_by_participant (
		participant_id text,
		match_id text,
		PRIMARY KEY (participant_id, match_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages_by_match (
		match_id text,
		created_at timestamp,
		id text,
		sender_id text,
		content text,
		PRIMARY KEY (match_id, created_at, id)
	) WITH CLUSTERING ORDER BY (created_at ASC, id ASC)`,
}

// EnsureSchema creates every table and index the store needs
func EnsureSchema(ctx context.Context, session *gocql.Session) error {
	for _, stmt := range schema {
		if err := session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// HealthCheck performs a health check on the database
func HealthCheck(ctx context.Context, session *gocql.Session) error {
	if session == nil {
		return fmt.Errorf("cassandra session is not initialized")
	}
	return session.Query("SELECT release_version FROM system.local").WithContext(ctx).Exec()
}
