// Package gpkg loads layer snapshots from a GeoPackage file. A GeoPackage
// is a SQLite database with standardized metadata tables; vector layers
// are discovered through gpkg_contents/gpkg_geometry_columns and read
// wholesale into immutable gis.Layer snapshots.
//
// Relation metadata, which GeoPackage itself does not model, is read from
// an optional fieldqa_relations table:
//
//	CREATE TABLE fieldqa_relations (
//	    id                TEXT PRIMARY KEY,
//	    name              TEXT,
//	    referencing_table TEXT NOT NULL,
//	    referencing_field TEXT NOT NULL,
//	    referenced_table  TEXT NOT NULL,
//	    referenced_field  TEXT NOT NULL
//	);
package gpkg

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/geoarch/fieldqa/errors"
	"github.com/geoarch/fieldqa/gis"
)

// Provider is a gis.Provider backed by one GeoPackage snapshot. All
// layers are read at open time; the file is not touched afterwards.
type Provider struct {
	layers    map[string]*gis.Layer
	byName    map[string]*gis.Layer
	relations []*gis.Relation
}

// Open reads every vector layer and the relation metadata from the
// GeoPackage at path.
func Open(path string) (*Provider, error) {
	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open geopackage %s", path)
	}
	defer db.Close()

	return load(db)
}

func load(db *sql.DB) (*Provider, error) {
	p := &Provider{
		layers: make(map[string]*gis.Layer),
		byName: make(map[string]*gis.Layer),
	}

	tables, err := vectorTables(db)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		layer, err := readLayer(db, t)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read layer %s", t.table)
		}
		p.layers[layer.ID] = layer
		p.byName[layer.Name] = layer
	}

	relations, err := readRelations(db)
	if err != nil {
		return nil, err
	}
	p.relations = relations
	return p, nil
}

func (p *Provider) LayerByID(id string) (*gis.Layer, bool) {
	l, ok := p.layers[id]
	return l, ok
}

func (p *Provider) LayerByName(name string) (*gis.Layer, bool) {
	l, ok := p.byName[name]
	return l, ok
}

func (p *Provider) Relations() []*gis.Relation {
	return p.relations
}

// LayerIDs returns the table names of all loaded layers.
func (p *Provider) LayerIDs() []string {
	ids := make([]string, 0, len(p.layers))
	for id := range p.layers {
		ids = append(ids, id)
	}
	return ids
}

type vectorTable struct {
	table      string
	identifier string
	geomColumn string
}

func vectorTables(db *sql.DB) ([]vectorTable, error) {
	rows, err := db.Query(`
		SELECT c.table_name, COALESCE(c.identifier, c.table_name), g.column_name
		FROM gpkg_contents c
		JOIN gpkg_geometry_columns g ON g.table_name = c.table_name
		WHERE c.data_type = 'features'
		ORDER BY c.table_name`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate geopackage layers")
	}
	defer rows.Close()

	var tables []vectorTable
	for rows.Next() {
		var t vectorTable
		if err := rows.Scan(&t.table, &t.identifier, &t.geomColumn); err != nil {
			return nil, errors.Wrap(err, "failed to scan gpkg_contents row")
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

type column struct {
	name string
	typ  string
	pk   bool
}

func tableColumns(db *sql.DB, table string) ([]column, error) {
	rows, err := db.Query(`SELECT name, type, pk FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read schema of %s", table)
	}
	defer rows.Close()

	var cols []column
	for rows.Next() {
		var c column
		var pk int
		if err := rows.Scan(&c.name, &c.typ, &pk); err != nil {
			return nil, err
		}
		c.pk = pk > 0
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func readLayer(db *sql.DB, t vectorTable) (*gis.Layer, error) {
	cols, err := tableColumns(db, t.table)
	if err != nil {
		return nil, err
	}

	layer := &gis.Layer{
		ID:   t.table,
		Name: t.identifier,
		Role: roleForName(t.identifier),
	}

	idColumn := ""
	var attrCols []column
	for _, c := range cols {
		if c.pk && idColumn == "" {
			idColumn = c.name
			continue
		}
		if strings.EqualFold(c.name, t.geomColumn) {
			continue
		}
		attrCols = append(attrCols, c)
		layer.Fields = append(layer.Fields, gis.Field{
			Name:     c.name,
			Type:     strings.ToLower(c.typ),
			IsString: isTextAffinity(c.typ),
		})
	}

	selected := make([]string, 0, len(attrCols)+2)
	if idColumn != "" {
		selected = append(selected, quoteIdent(idColumn))
	} else {
		selected = append(selected, "rowid")
	}
	selected = append(selected, quoteIdent(t.geomColumn))
	for _, c := range attrCols {
		selected = append(selected, quoteIdent(c.name))
	}

	rows, err := db.Query("SELECT " + strings.Join(selected, ", ") + " FROM " + quoteIdent(t.table))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read features of %s", t.table)
	}
	defer rows.Close()

	for rows.Next() {
		dest := make([]any, len(selected))
		ptrs := make([]any, len(selected))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		feat := &gis.Feature{Attributes: make(map[string]any, len(attrCols))}
		if id, ok := dest[0].(int64); ok {
			feat.ID = id
		}
		if blob, ok := dest[1].([]byte); ok && len(blob) > 0 {
			geom, err := decodeGeometry(blob)
			if err == nil {
				feat.Geometry = geom
			}
			// Undecodable geometry degrades to "no geometry": the
			// feature still participates in attribute-only checks.
		}
		for i, c := range attrCols {
			feat.Attributes[c.name] = normalizeSQLValue(dest[i+2])
		}
		layer.Features = append(layer.Features, feat)
	}
	return layer, rows.Err()
}

func readRelations(db *sql.DB) ([]*gis.Relation, error) {
	var exists int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'fieldqa_relations'`,
	).Scan(&exists)
	if err != nil || exists == 0 {
		return nil, nil
	}

	rows, err := db.Query(`
		SELECT id, COALESCE(name, id), referencing_table, referencing_field,
		       referenced_table, referenced_field
		FROM fieldqa_relations ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read relation metadata")
	}
	defer rows.Close()

	var relations []*gis.Relation
	for rows.Next() {
		rel := &gis.Relation{}
		var referencingField, referencedField string
		if err := rows.Scan(&rel.ID, &rel.Name, &rel.ReferencingLayerID,
			&referencingField, &rel.ReferencedLayerID, &referencedField); err != nil {
			return nil, err
		}
		rel.FieldPairs = []gis.FieldPair{
			{Referencing: referencingField, Referenced: referencedField},
		}
		relations = append(relations, rel)
	}
	return relations, rows.Err()
}

func roleForName(name string) gis.LayerRole {
	switch name {
	case gis.TempObjectsLayerName, gis.TempFeaturesLayerName,
		gis.TempSmallFindsLayerName, gis.TempPointsLayerName:
		return gis.RoleTemporary
	}
	return gis.RoleDefinitive
}

func isTextAffinity(typ string) bool {
	t := strings.ToUpper(typ)
	return strings.Contains(t, "CHAR") || strings.Contains(t, "TEXT") ||
		strings.Contains(t, "CLOB") || strings.Contains(t, "STRING")
}

func normalizeSQLValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// GeoPackage binary header layout, per the GPKG spec: magic "GP", one
// version byte, one flags byte, a 4-byte srs id, an optional envelope
// sized by flag bits 1-3, then standard WKB.
const gpkgMagic = "GP"

var envelopeSizes = [...]int{0, 32, 48, 48, 64}

func decodeGeometry(blob []byte) (orb.Geometry, error) {
	if len(blob) < 8 || string(blob[:2]) != gpkgMagic {
		return nil, errors.ErrInvalidGeometry
	}
	flags := blob[3]
	if flags&(1<<5) != 0 {
		// Empty-geometry flag.
		return nil, errors.ErrInvalidGeometry
	}
	envelope := int(flags>>1) & 7
	if envelope >= len(envelopeSizes) {
		return nil, errors.ErrInvalidGeometry
	}
	offset := 8 + envelopeSizes[envelope]
	if len(blob) <= offset {
		return nil, errors.ErrInvalidGeometry
	}
	geom, err := wkb.Unmarshal(blob[offset:])
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidGeometry, err.Error())
	}
	return geom, nil
}
