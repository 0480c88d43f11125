// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlgraph

import (
	"context"
	"database/sql"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/sigil-dev/ontograph/internal/graphstore"
	"github.com/sigil-dev/ontograph/internal/query"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// runner executes statements against a DB or an open transaction. db is
// set only outside a transaction, so writes can open a local one.
type runner struct {
	q      queryer
	db     *sql.DB
	d      *dialect
	logger *slog.Logger
}

func (r *runner) Run(ctx context.Context, q query.Query) ([]graphstore.Row, error) {
	a := q.Args
	switch q.Kind {
	case query.KindMatchNode:
		return r.matchNode(ctx, a)
	case query.KindMatchLabels:
		return r.matchWhere(ctx, a.Labels, "")
	case query.KindMatchProperty:
		return r.matchProperty(ctx, a)
	case query.KindClosure:
		return r.closure(ctx, a)
	case query.KindAttached:
		return r.attached(ctx, a)
	case query.KindNeighbors:
		return r.neighbors(ctx, a)
	case query.KindRoots:
		return r.matchWhere(ctx, a.Labels,
			"NOT EXISTS (SELECT 1 FROM edges e WHERE e.src = n.id AND e.type = ?)", a.Rel)
	case query.KindAllNodes:
		return r.matchWhere(ctx, nil, "")
	case query.KindArcs:
		return r.arcs(ctx, a)
	case query.KindCreateNode:
		return r.write(ctx, func(w *runner) ([]graphstore.Row, error) { return w.createNode(ctx, a) })
	case query.KindCreateArc:
		return r.write(ctx, func(w *runner) ([]graphstore.Row, error) { return w.createArc(ctx, a) })
	case query.KindUpdateNode:
		return r.write(ctx, func(w *runner) ([]graphstore.Row, error) { return w.updateNode(ctx, a) })
	case query.KindDeleteNodes:
		return r.write(ctx, func(w *runner) ([]graphstore.Row, error) { return w.deleteNodes(ctx, a) })
	case query.KindDeleteArcs:
		return r.deleteArcs(ctx, a)
	case query.KindClearProperty:
		return r.write(ctx, func(w *runner) ([]graphstore.Row, error) { return w.clearProperty(ctx, a) })
	default:
		return nil, ontoerr.New(ontoerr.CodeQueryKindUnsupported, "unsupported query kind",
			ontoerr.FieldQueryKind(string(q.Kind)), ontoerr.FieldBackend(r.d.name))
	}
}

// write runs fn in a local transaction unless r is already inside one.
func (r *runner) write(ctx context.Context, fn func(*runner) ([]graphstore.Row, error)) ([]graphstore.Row, error) {
	if r.db == nil {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := fn(&runner{q: tx, d: r.d, logger: r.logger})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, classify(err, "committing transaction")
	}
	return rows, nil
}

func (r *runner) exec(ctx context.Context, stmt string, args ...any) (sql.Result, error) {
	return r.q.ExecContext(ctx, r.d.rebind(stmt), args...)
}

func (r *runner) query(ctx context.Context, stmt string, args ...any) (*sql.Rows, error) {
	return r.q.QueryContext(ctx, r.d.rebind(stmt), args...)
}

// ---------------------------------------------------------------------------
// Node loading
// ---------------------------------------------------------------------------

type storedNode struct {
	id     int64
	uri    string
	labels []string
	props  map[string]any
}

func (n storedNode) raw() graphstore.RawNode {
	props := make(map[string]any, len(n.props)+1)
	for k, v := range n.props {
		props[k] = v
	}
	props["uri"] = n.uri
	return graphstore.RawNode{ID: elementID(n.id), Labels: slices.Clone(n.labels), Props: props}
}

func (n storedNode) hasLabels(want []string) bool {
	for _, l := range want {
		if !slices.Contains(n.labels, l) {
			return false
		}
	}
	return true
}

// loadNodes returns nodes matching where (an expression over alias n),
// ordered by id, each with its full label set.
func (r *runner) loadNodes(ctx context.Context, where string, args ...any) ([]storedNode, error) {
	if where == "" {
		where = "1=1"
	}
	stmt := `SELECT n.id, n.uri, n.props, l.label
FROM nodes n LEFT JOIN node_labels l ON l.node_id = n.id
WHERE ` + where + `
ORDER BY n.id, l.label`

	rows, err := r.query(ctx, stmt, args...)
	if err != nil {
		return nil, classify(err, "loading nodes")
	}
	defer func() { _ = rows.Close() }()

	var nodes []storedNode
	for rows.Next() {
		var (
			id    int64
			uri   string
			props string
			label sql.NullString
		)
		if err := rows.Scan(&id, &uri, &props, &label); err != nil {
			return nil, classify(err, "scanning node")
		}
		if len(nodes) == 0 || nodes[len(nodes)-1].id != id {
			nodes = append(nodes, storedNode{id: id, uri: uri, props: r.decodeProps(props, uri)})
		}
		if label.Valid {
			last := &nodes[len(nodes)-1]
			last.labels = append(last.labels, label.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterating nodes")
	}
	return nodes, nil
}

// labelFilter renders one membership test per label (AND semantics).
func labelFilter(alias string, labels []string) (string, []any) {
	if len(labels) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(labels))
	args := make([]any, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, alias+".id IN (SELECT node_id FROM node_labels WHERE label = ?)")
		args = append(args, l)
	}
	return strings.Join(parts, " AND "), args
}

func and(conds ...string) string {
	var kept []string
	for _, c := range conds {
		if c != "" {
			kept = append(kept, c)
		}
	}
	return strings.Join(kept, " AND ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func idArgs(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func elementID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func nodeRows(nodes []storedNode) []graphstore.Row {
	rows := make([]graphstore.Row, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, graphstore.Row{query.ColNode: n.raw()})
	}
	return rows
}

func countRow(n int64) []graphstore.Row {
	return []graphstore.Row{{query.ColCount: graphstore.Scalar{V: n}}}
}

func (r *runner) nodesByURI(ctx context.Context, uris, labels []string) ([]storedNode, error) {
	if len(uris) == 0 {
		return nil, nil
	}
	lf, largs := labelFilter("n", labels)
	where := and("n.uri IN ("+placeholders(len(uris))+")", lf)
	return r.loadNodes(ctx, where, append(stringArgs(uris), largs...)...)
}

func (r *runner) nodesByID(ctx context.Context, ids []int64) (map[int64]storedNode, error) {
	out := make(map[int64]storedNode, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	nodes, err := r.loadNodes(ctx, "n.id IN ("+placeholders(len(ids))+")", idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		out[n.id] = n
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func (r *runner) matchNode(ctx context.Context, a query.Args) ([]graphstore.Row, error) {
	nodes, err := r.nodesByURI(ctx, a.URIs[:1], a.Labels)
	if err != nil {
		return nil, err
	}
	if len(nodes) > 1 {
		nodes = nodes[:1]
	}
	return nodeRows(nodes), nil
}

func (r *runner) matchWhere(ctx context.Context, labels []string, extra string, extraArgs ...any) ([]graphstore.Row, error) {
	lf, largs := labelFilter("n", labels)
	nodes, err := r.loadNodes(ctx, and(lf, extra), append(largs, extraArgs...)...)
	if err != nil {
		return nil, err
	}
	return nodeRows(nodes), nil
}

// matchProperty filters in SQL, then confirms each candidate with the same
// normalized comparison the other backends get from the graph engine.
func (r *runner) matchProperty(ctx context.Context, a query.Args) ([]graphstore.Row, error) {
	want := normalize(a.Value)
	var cond string
	var cargs []any
	if a.Key == "uri" {
		uri, ok := want.(string)
		if !ok {
			return nil, nil
		}
		cond, cargs = "n.uri = ?", []any{uri}
	} else {
		cond, cargs = r.d.propFilter("n", a.Key, want)
	}

	lf, largs := labelFilter("n", a.Labels)
	nodes, err := r.loadNodes(ctx, and(lf, cond), append(largs, cargs...)...)
	if err != nil {
		return nil, err
	}
	matched := nodes[:0]
	for _, n := range nodes {
		got, ok := n.props[a.Key]
		if a.Key == "uri" {
			got, ok = n.uri, true
		}
		if ok && equalValues(got, want) {
			matched = append(matched, n)
		}
	}
	return nodeRows(matched), nil
}

func (r *runner) closure(ctx context.Context, a query.Args) ([]graphstore.Row, error) {
	from, to := "src", "dst"
	if a.Dir == query.In {
		from, to = "dst", "src"
	}
	af, aargs := labelFilter("s", a.Anchor)
	seed := and("s.uri = ?", "e.type = ?", af)

	// UNION (not UNION ALL) deduplicates the working set, so the walk
	// terminates on cyclic data.
	reach := `WITH RECURSIVE reach(id) AS (
	SELECT e.` + to + ` FROM edges e JOIN nodes s ON s.id = e.` + from + ` WHERE ` + seed + `
	UNION
	SELECT e.` + to + ` FROM edges e JOIN reach r ON e.` + from + ` = r.id WHERE e.type = ?
)
SELECT id FROM reach`

	args := []any{a.URIs[0], a.Rel}
	args = append(args, aargs...)
	args = append(args, a.Rel)

	rows, err := r.query(ctx, reach, args...)
	if err != nil {
		return nil, classify(err, "walking closure")
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, classify(err, "scanning closure")
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterating closure")
	}

	byID, err := r.nodesByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	slices.Sort(ids)
	var out []storedNode
	for _, id := range ids {
		if n, ok := byID[id]; ok && n.hasLabels(a.Labels) {
			out = append(out, n)
		}
	}
	return nodeRows(out), nil
}

// edgePair is one hop between two node ids.
type edgePair struct {
	near, far int64
	via       string
}

// hops returns edges of type rel touching anchor nodes with the given uris.
// outward selects anchor -> far; inward selects far -> anchor.
func (r *runner) hops(ctx context.Context, uris []string, rel string, anchor []string, outward bool) ([]edgePair, error) {
	if len(uris) == 0 {
		return nil, nil
	}
	anchorCol, farCol := "dst", "src"
	if outward {
		anchorCol, farCol = "src", "dst"
	}
	af, aargs := labelFilter("a", anchor)
	where := and("e.type = ?", "a.uri IN ("+placeholders(len(uris))+")", af)
	stmt := `SELECT e.` + anchorCol + `, e.` + farCol + `, a.uri FROM edges e
JOIN nodes a ON a.id = e.` + anchorCol + `
WHERE ` + where

	args := append([]any{rel}, stringArgs(uris)...)
	args = append(args, aargs...)
	rows, err := r.query(ctx, stmt, args...)
	if err != nil {
		return nil, classify(err, "following "+rel)
	}
	defer func() { _ = rows.Close() }()

	var out []edgePair
	for rows.Next() {
		var p edgePair
		if err := rows.Scan(&p.near, &p.far, &p.via); err != nil {
			return nil, classify(err, "scanning hop")
		}
		out = append(out, p)
	}
	return out, classify(rows.Err(), "iterating hops")
}

func (r *runner) neighbors(ctx context.Context, a query.Args) ([]graphstore.Row, error) {
	pairs, err := r.hops(ctx, a.URIs, a.Rel, a.Anchor, a.Dir == query.Out)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(pairs))
	for _, p := range pairs {
		ids = append(ids, p.far)
	}
	byID, err := r.nodesByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	type key struct {
		id  int64
		via string
	}
	seen := map[key]bool{}
	var out []graphstore.Row
	for _, p := range pairs {
		n, ok := byID[p.far]
		k := key{p.far, p.via}
		if !ok || seen[k] || !n.hasLabels(a.Labels) {
			continue
		}
		seen[k] = true
		out = append(out, graphstore.Row{
			query.ColNode: n.raw(),
			query.ColVia:  graphstore.Scalar{V: p.via},
		})
	}
	return out, nil
}

func (r *runner) attached(ctx context.Context, a query.Args) ([]graphstore.Row, error) {
	// Orientation is ignored: property -> domain and domain -> property
	// edges both count.
	in, err := r.hops(ctx, a.URIs, a.Rel, a.Anchor, false)
	if err != nil {
		return nil, err
	}
	out, err := r.hops(ctx, a.URIs, a.Rel, a.Anchor, true)
	if err != nil {
		return nil, err
	}
	pairs := append(in, out...)

	ids := make([]int64, 0, len(pairs)*2)
	for _, p := range pairs {
		ids = append(ids, p.near, p.far)
	}
	byID, err := r.nodesByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	ranges := map[int64][]storedNode{}
	if a.RangeRel != "" {
		ranges, err = r.rangesOf(ctx, pairs, byID, a)
		if err != nil {
			return nil, err
		}
	}

	type key struct{ p, d, rg int64 }
	seen := map[key]bool{}
	var rows []graphstore.Row
	emit := func(p, d storedNode, rg *storedNode) {
		k := key{p.id, d.id, 0}
		row := graphstore.Row{query.ColProperty: p.raw(), query.ColDomain: d.raw()}
		if rg != nil {
			k.rg = rg.id
			row[query.ColRange] = rg.raw()
		} else if a.RangeRel != "" {
			row[query.ColRange] = graphstore.Scalar{}
		}
		if seen[k] {
			return
		}
		seen[k] = true
		rows = append(rows, row)
	}

	for _, pr := range pairs {
		p, pok := byID[pr.far]
		d, dok := byID[pr.near]
		if !pok || !dok || !p.hasLabels(a.Labels) {
			continue
		}
		rs := ranges[p.id]
		if len(rs) == 0 {
			emit(p, d, nil)
			continue
		}
		for i := range rs {
			emit(p, d, &rs[i])
		}
	}
	return rows, nil
}

// rangesOf resolves p -[RangeRel]-> target for each property in pairs.
func (r *runner) rangesOf(ctx context.Context, pairs []edgePair, byID map[int64]storedNode, a query.Args) (map[int64][]storedNode, error) {
	var uris []string
	seen := map[string]bool{}
	for _, pr := range pairs {
		if p, ok := byID[pr.far]; ok && !seen[p.uri] {
			seen[p.uri] = true
			uris = append(uris, p.uri)
		}
	}
	hops, err := r.hops(ctx, uris, a.RangeRel, a.Labels, true)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(hops))
	for _, h := range hops {
		ids = append(ids, h.far)
	}
	targets, err := r.nodesByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := map[int64][]storedNode{}
	for _, h := range hops {
		if t, ok := targets[h.far]; ok && t.hasLabels(a.Anchor) {
			out[h.near] = append(out[h.near], t)
		}
	}
	return out, nil
}

func (r *runner) arcs(ctx context.Context, a query.Args) ([]graphstore.Row, error) {
	stmt := `SELECT e.id, e.type, e.src, e.dst, e.props, s.uri, d.uri
FROM edges e
JOIN nodes s ON s.id = e.src
JOIN nodes d ON d.id = e.dst`
	var args []any
	if a.Rel != "" {
		stmt += " WHERE e.type = ?"
		args = append(args, a.Rel)
	}
	stmt += " ORDER BY e.src, e.type, e.dst"

	rows, err := r.query(ctx, stmt, args...)
	if err != nil {
		return nil, classify(err, "loading arcs")
	}
	defer func() { _ = rows.Close() }()

	var out []graphstore.Row
	for rows.Next() {
		var (
			id, typ, props, from, to string
			src, dst                 int64
		)
		if err := rows.Scan(&id, &typ, &src, &dst, &props, &from, &to); err != nil {
			return nil, classify(err, "scanning arc")
		}
		out = append(out, graphstore.Row{
			query.ColArc: graphstore.RawEdge{
				ID:      id,
				Type:    typ,
				StartID: elementID(src),
				EndID:   elementID(dst),
				Props:   r.decodeProps(props, id),
			},
			query.ColFrom: graphstore.Scalar{V: from},
			query.ColTo:   graphstore.Scalar{V: to},
		})
	}
	return out, classify(rows.Err(), "iterating arcs")
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

func (r *runner) createNode(ctx context.Context, a query.Args) ([]graphstore.Row, error) {
	uri := a.URIs[0]
	props, err := encodeProps(a.Props)
	if err != nil {
		return nil, err
	}

	rows, err := r.query(ctx, "INSERT INTO nodes (uri, props) VALUES (?, ?) RETURNING id", uri, props)
	if err != nil {
		return nil, classify(err, "inserting node "+uri)
	}
	var id int64
	if rows.Next() {
		err = rows.Scan(&id)
	}
	// Constraint violations from RETURNING surface on iteration, not on the
	// query call.
	if err == nil {
		err = rows.Err()
	}
	_ = rows.Close()
	if err != nil {
		return nil, classify(err, "inserting node "+uri)
	}
	if id == 0 {
		return nil, ontoerr.New(ontoerr.CodeStoreDatabaseFailure, "insert returned no id", ontoerr.FieldURI(uri))
	}

	for _, l := range a.Labels {
		if _, err := r.exec(ctx, "INSERT INTO node_labels (node_id, label) VALUES (?, ?)", id, l); err != nil {
			return nil, classify(err, "labelling node "+uri)
		}
	}

	nodes, err := r.nodesByID(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	return nodeRows([]storedNode{nodes[id]}), nil
}

func (r *runner) createArc(ctx context.Context, a query.Args) ([]graphstore.Row, error) {
	from, err := r.nodesByURI(ctx, []string{a.From.URI}, a.From.Labels)
	if err != nil {
		return nil, err
	}
	to, err := r.nodesByURI(ctx, []string{a.To.URI}, a.To.Labels)
	if err != nil {
		return nil, err
	}
	if len(from) == 0 || len(to) == 0 {
		return nil, nil
	}

	props, err := encodeProps(a.Props)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	if _, err := r.exec(ctx, "INSERT INTO edges (id, type, src, dst, props) VALUES (?, ?, ?, ?, ?)",
		id, a.Rel, from[0].id, to[0].id, props); err != nil {
		return nil, classify(err, "inserting "+a.Rel+" edge")
	}

	return []graphstore.Row{{
		query.ColStart: from[0].raw(),
		query.ColArc: graphstore.RawEdge{
			ID:      id,
			Type:    a.Rel,
			StartID: elementID(from[0].id),
			EndID:   elementID(to[0].id),
			Props:   r.decodeProps(props, id),
		},
		query.ColEnd: to[0].raw(),
	}}, nil
}

func (r *runner) updateNode(ctx context.Context, a query.Args) ([]graphstore.Row, error) {
	nodes, err := r.nodesByURI(ctx, a.URIs[:1], a.Labels)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	n := nodes[0]

	var next map[string]any
	if a.Mode == query.Overwrite {
		next = map[string]any{}
	} else {
		next = n.props
	}
	applyPatch(next, a.Props)

	props, err := encodeProps(next)
	if err != nil {
		return nil, err
	}
	if _, err := r.exec(ctx, "UPDATE nodes SET props = ? WHERE id = ?", props, n.id); err != nil {
		return nil, classify(err, "updating node "+n.uri)
	}
	n.props = r.decodeProps(props, n.uri)
	return nodeRows([]storedNode{n}), nil
}

func (r *runner) deleteNodes(ctx context.Context, a query.Args) ([]graphstore.Row, error) {
	nodes, err := r.nodesByURI(ctx, a.URIs, a.Labels)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return countRow(0), nil
	}
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.id
	}
	in := "(" + placeholders(len(ids)) + ")"
	both := append(idArgs(ids), idArgs(ids)...)

	if a.Detach {
		if _, err := r.exec(ctx, "DELETE FROM edges WHERE src IN "+in+" OR dst IN "+in, both...); err != nil {
			return nil, classify(err, "detaching nodes")
		}
	} else {
		rows, err := r.query(ctx, "SELECT COUNT(*) FROM edges WHERE src IN "+in+" OR dst IN "+in, both...)
		if err != nil {
			return nil, classify(err, "counting relationships")
		}
		var remaining int64
		if rows.Next() {
			err = rows.Scan(&remaining)
		}
		_ = rows.Close()
		if err != nil {
			return nil, classify(err, "counting relationships")
		}
		if remaining > 0 {
			return nil, ontoerr.New(ontoerr.CodeStoreConflict,
				"cannot delete node: it still has relationships, use detach delete",
				ontoerr.FieldURI(nodes[0].uri), ontoerr.Field("relationships", remaining))
		}
	}

	if _, err := r.exec(ctx, "DELETE FROM node_labels WHERE node_id IN "+in, idArgs(ids)...); err != nil {
		return nil, classify(err, "deleting labels")
	}
	res, err := r.exec(ctx, "DELETE FROM nodes WHERE id IN "+in, idArgs(ids)...)
	if err != nil {
		return nil, classify(err, "deleting nodes")
	}
	n, err := res.RowsAffected()
	if err != nil {
		n = int64(len(ids))
	}
	return countRow(n), nil
}

func (r *runner) deleteArcs(ctx context.Context, a query.Args) ([]graphstore.Row, error) {
	res, err := r.exec(ctx, "DELETE FROM edges WHERE type = ?", a.Rel)
	if err != nil {
		return nil, classify(err, "deleting "+a.Rel+" edges")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, classify(err, "counting deleted edges")
	}
	return countRow(n), nil
}

func (r *runner) clearProperty(ctx context.Context, a query.Args) ([]graphstore.Row, error) {
	pairs, err := r.hops(ctx, a.URIs, a.Rel, a.Anchor, false)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(pairs))
	for _, p := range pairs {
		ids = append(ids, p.far)
	}
	byID, err := r.nodesByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	var touched int64
	for _, n := range byID {
		if !n.hasLabels(a.Labels) {
			continue
		}
		touched++
		if _, ok := n.props[a.Key]; !ok {
			continue
		}
		delete(n.props, a.Key)
		props, err := encodeProps(n.props)
		if err != nil {
			return nil, err
		}
		if _, err := r.exec(ctx, "UPDATE nodes SET props = ? WHERE id = ?", props, n.id); err != nil {
			return nil, classify(err, "clearing "+a.Key+" on "+n.uri)
		}
	}
	return countRow(touched), nil
}
