package sqlite

// schemaSQL is the hand-written equivalent of the teacher's ent schema
// (internal/repository/sqlite/ent/schema/*.go: Project, Task,
// TaskDependency, ProjectContext field/edge/index definitions), generalized
// from KNOT's project/task pair to the project/branch/task/subtask
// hierarchy plus the four context kinds. JSON-shaped columns (data,
// local_overrides, delegation_triggers, assignees, labels, dependencies,
// insights_found) are stored as TEXT holding serialized JSON, same
// "native JSON column" intent the spec calls for without a JSON1-specific
// column type. Indexes mirror the teacher's per-FK and per-status index
// pattern, plus a partial index over tasks that are neither done nor
// cancelled for next-task selection.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'active',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL,
	UNIQUE (user_id, name)
);

CREATE TABLE IF NOT EXISTS branches (
	id                   TEXT PRIMARY KEY,
	project_id           TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	name                 TEXT NOT NULL,
	description          TEXT NOT NULL DEFAULT '',
	priority             TEXT NOT NULL DEFAULT 'medium',
	status               TEXT NOT NULL DEFAULT 'active',
	assigned_agent_id    TEXT,
	task_count           INTEGER NOT NULL DEFAULT 0,
	completed_task_count INTEGER NOT NULL DEFAULT 0,
	created_at           DATETIME NOT NULL,
	updated_at           DATETIME NOT NULL,
	UNIQUE (project_id, name)
);
CREATE INDEX IF NOT EXISTS idx_branches_project_id ON branches(project_id);
CREATE INDEX IF NOT EXISTS idx_branches_status ON branches(status);

CREATE TABLE IF NOT EXISTS tasks (
	id                 TEXT PRIMARY KEY,
	branch_id          TEXT NOT NULL REFERENCES branches(id) ON DELETE CASCADE,
	title              TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'todo',
	priority           TEXT NOT NULL DEFAULT 'medium',
	details            TEXT NOT NULL DEFAULT '',
	estimated_effort   TEXT NOT NULL DEFAULT 'medium',
	due_date           DATETIME,
	context_id         TEXT,
	completion_summary TEXT NOT NULL DEFAULT '',
	testing_notes      TEXT NOT NULL DEFAULT '',
	assignees          TEXT NOT NULL DEFAULT '[]',
	labels             TEXT NOT NULL DEFAULT '[]',
	created_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_branch_id ON tasks(branch_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_priority ON tasks(priority);
CREATE INDEX IF NOT EXISTS idx_tasks_branch_status ON tasks(branch_id, status);
CREATE INDEX IF NOT EXISTS idx_tasks_not_done ON tasks(branch_id, priority, created_at) WHERE status != 'done' AND status != 'cancelled';

CREATE TABLE IF NOT EXISTS task_dependencies (
	task_id        TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	depends_on_id  TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	created_at     DATETIME NOT NULL,
	PRIMARY KEY (task_id, depends_on_id)
);
CREATE INDEX IF NOT EXISTS idx_task_deps_depends_on ON task_dependencies(depends_on_id);

CREATE TABLE IF NOT EXISTS subtasks (
	id                  TEXT PRIMARY KEY,
	task_id             TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	title               TEXT NOT NULL,
	description         TEXT NOT NULL DEFAULT '',
	status              TEXT NOT NULL DEFAULT 'todo',
	priority            TEXT NOT NULL DEFAULT 'medium',
	assignees           TEXT NOT NULL DEFAULT '[]',
	progress_percentage INTEGER NOT NULL DEFAULT 0,
	progress_notes      TEXT NOT NULL DEFAULT '',
	blockers            TEXT NOT NULL DEFAULT '',
	completion_summary  TEXT NOT NULL DEFAULT '',
	impact_on_parent    TEXT NOT NULL DEFAULT '',
	insights_found      TEXT NOT NULL DEFAULT '[]',
	challenges_overcome TEXT NOT NULL DEFAULT '',
	created_at          DATETIME NOT NULL,
	updated_at          DATETIME NOT NULL,
	completed_at        DATETIME
);
CREATE INDEX IF NOT EXISTS idx_subtasks_task_id ON subtasks(task_id);

CREATE TABLE IF NOT EXISTS contexts (
	level                TEXT NOT NULL,
	id                   TEXT NOT NULL,
	data                 TEXT NOT NULL DEFAULT '{}',
	local_overrides      TEXT NOT NULL DEFAULT '{}',
	delegation_triggers  TEXT NOT NULL DEFAULT '{}',
	inheritance_disabled INTEGER NOT NULL DEFAULT 0,
	version              INTEGER NOT NULL DEFAULT 1,
	created_at           DATETIME NOT NULL,
	updated_at           DATETIME NOT NULL,
	PRIMARY KEY (level, id)
);

CREATE TABLE IF NOT EXISTS context_delegations (
	id              TEXT PRIMARY KEY,
	source_level    TEXT NOT NULL,
	source_id       TEXT NOT NULL,
	target_level    TEXT NOT NULL,
	target_id       TEXT NOT NULL,
	delegated_data  TEXT NOT NULL DEFAULT '{}',
	reason          TEXT NOT NULL DEFAULT '',
	auto_delegated  INTEGER NOT NULL DEFAULT 0,
	processed       INTEGER NOT NULL DEFAULT 0,
	approved        INTEGER,
	rejected_reason TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL,
	processed_at    DATETIME
);
CREATE INDEX IF NOT EXISTS idx_delegations_pending ON context_delegations(target_level, processed);

CREATE TABLE IF NOT EXISTS agents (
	name               TEXT PRIMARY KEY,
	capabilities       TEXT NOT NULL DEFAULT '[]',
	status             TEXT NOT NULL DEFAULT 'available',
	availability_score REAL NOT NULL DEFAULT 1.0
);

CREATE TABLE IF NOT EXISTS agent_assignments (
	agent_name  TEXT NOT NULL REFERENCES agents(name) ON DELETE CASCADE,
	branch_id   TEXT NOT NULL REFERENCES branches(id) ON DELETE CASCADE,
	assigned_at DATETIME NOT NULL,
	PRIMARY KEY (agent_name, branch_id)
);
CREATE INDEX IF NOT EXISTS idx_assignments_branch ON agent_assignments(branch_id);

CREATE TABLE IF NOT EXISTS labels (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	color       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS task_labels (
	task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	label_name TEXT NOT NULL REFERENCES labels(name) ON DELETE CASCADE,
	PRIMARY KEY (task_id, label_name)
);
`
