// Package query builds the SELECT statements behind the decision listing.
// Callers name fields by their view names (CreatedAt, Question); only names
// registered on the projection ever reach the SQL text.
package query

import (
	"fmt"
	"strings"
)

// ProjectionMap maps view names to alias-qualified columns of one table.
type ProjectionMap struct {
	schema     string
	table      string
	alias      string
	columns    map[string]string
	columnList []string
}

func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		schema:  schema,
		table:   table,
		alias:   alias,
		columns: make(map[string]string),
	}
}

// Project exposes column under viewName and adds it to the select list.
func (p *ProjectionMap) Project(column, viewName string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.columns[viewName] = qualified
	p.columnList = append(p.columnList, qualified)
	return p
}

func (p *ProjectionMap) Alias() string {
	return p.alias
}

// Table returns "schema.table alias", e.g. "public.decision_records r".
func (p *ProjectionMap) Table() string {
	return fmt.Sprintf("%s.%s %s", p.schema, p.table, p.alias)
}

// Column resolves a view name. Sort fields arrive from query strings, so an
// unknown name reports false rather than passing through.
func (p *ProjectionMap) Column(viewName string) (string, bool) {
	col, ok := p.columns[viewName]
	return col, ok
}

// Columns returns the select list, comma separated.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.columnList, ", ")
}

func (p *ProjectionMap) ColumnList() []string {
	return p.columnList
}

// From returns the FROM target.
func (p *ProjectionMap) From() string {
	return p.Table()
}
