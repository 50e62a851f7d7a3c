package sqlite

const (
	createAnchors = `CREATE TABLE IF NOT EXISTS anchors (
		anchor_id  TEXT PRIMARY KEY,
		node_id    TEXT NOT NULL DEFAULT '',
		body       TEXT NOT NULL,
		created_at TEXT NOT NULL
	);`

	idxAnchorsNode = `CREATE INDEX IF NOT EXISTS idx_anchors_node_id ON anchors(node_id);`
)

var schemaSQL = createAnchors + "\n" + idxAnchorsNode
