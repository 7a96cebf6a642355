package db

// Node tables, one per graph node kind.
var nodeTables = []string{"document", "person", "place", "organization", "term", "date"}

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- NODE TABLES
    -- ==========================================================================
    -- Keys are canonical identifiers (or normalized names); properties are merged on upsert.
    DEFINE TABLE IF NOT EXISTS document SCHEMALESS;
    DEFINE FIELD IF NOT EXISTS document_id ON document TYPE string;
    DEFINE FIELD IF NOT EXISTS source ON document TYPE string;
    DEFINE INDEX IF NOT EXISTS document_source ON document FIELDS source;

    DEFINE TABLE IF NOT EXISTS person SCHEMALESS;
    DEFINE FIELD IF NOT EXISTS name ON person TYPE string;
    DEFINE TABLE IF NOT EXISTS place SCHEMALESS;
    DEFINE FIELD IF NOT EXISTS name ON place TYPE string;
    DEFINE TABLE IF NOT EXISTS organization SCHEMALESS;
    DEFINE FIELD IF NOT EXISTS name ON organization TYPE string;

    DEFINE TABLE IF NOT EXISTS term SCHEMALESS;
    DEFINE FIELD IF NOT EXISTS term ON term TYPE string;
    DEFINE FIELD IF NOT EXISTS label ON term TYPE string;
    DEFINE INDEX IF NOT EXISTS term_label ON term FIELDS label;

    DEFINE TABLE IF NOT EXISTS date SCHEMALESS;
    DEFINE FIELD IF NOT EXISTS date ON date TYPE string;

    -- ==========================================================================
    -- RELATIONS TABLE
    -- ==========================================================================
    -- Single relation table with a rel_type field instead of dynamic table names.
    -- source is the batch document that owns the edge; re-persisting a document
    -- deletes its edges by source and recreates them.
    DEFINE TABLE IF NOT EXISTS relates TYPE RELATION SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS rel_type ON relates TYPE string;
    DEFINE FIELD IF NOT EXISTS source ON relates TYPE string;
    DEFINE FIELD IF NOT EXISTS created ON relates TYPE datetime DEFAULT time::now();
    DEFINE INDEX IF NOT EXISTS relates_source ON relates FIELDS source;
    DEFINE INDEX IF NOT EXISTS unique_relation ON relates FIELDS in, out, rel_type, source UNIQUE;

    -- ==========================================================================
    -- BATCH RUNS
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS batch_run SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS status ON batch_run TYPE string;
    DEFINE FIELD IF NOT EXISTS location ON batch_run TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS documents ON batch_run TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS max_concurrent ON batch_run TYPE int;
    DEFINE FIELD IF NOT EXISTS total ON batch_run TYPE int;
    DEFINE FIELD IF NOT EXISTS progress ON batch_run TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS results ON batch_run TYPE option<array<object>> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS error ON batch_run TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS started_at ON batch_run TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS completed_at ON batch_run TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS batch_run_status ON batch_run FIELDS status;
    DEFINE INDEX IF NOT EXISTS batch_run_started ON batch_run FIELDS started_at;
`
