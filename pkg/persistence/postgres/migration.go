package postgres

// migrations returns the schema history for the workflow store. The trigger
// and action program are stored as JSONB documents; the columns the
// dispatcher and scheduler filter on are mirrored out for indexing.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id UUID PRIMARY KEY,
				store_id TEXT NOT NULL,
				organization_id TEXT,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				tags JSONB NOT NULL DEFAULT '[]',
				version INTEGER NOT NULL DEFAULT 1,
				trigger_type TEXT NOT NULL,
				trigger JSONB NOT NULL,
				actions JSONB NOT NULL DEFAULT '[]',
				is_active BOOLEAN NOT NULL DEFAULT FALSE,
				is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
				next_run TIMESTAMP WITH TIME ZONE,
				total_executions BIGINT NOT NULL DEFAULT 0,
				successful_executions BIGINT NOT NULL DEFAULT 0,
				failed_executions BIGINT NOT NULL DEFAULT 0,
				last_executed_at TIMESTAMP WITH TIME ZONE,
				last_error JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_workflows_dispatch
				ON workflows (store_id, trigger_type)
				WHERE is_active AND NOT is_deleted;

			CREATE INDEX IF NOT EXISTS idx_workflows_due
				ON workflows (next_run)
				WHERE is_active AND NOT is_deleted AND trigger_type = 'schedule';
		`,
	}
}
