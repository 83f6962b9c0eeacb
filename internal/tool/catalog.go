package tool

import (
	"sort"

	"github.com/harunnryd/sylva/internal/model/contract"
)

// Descriptor is the immutable description of one tool.
type Descriptor struct {
	Kind        Kind
	Description string
	Fields      []FieldSpec
	Metadata    ToolMetadata
}

func (d Descriptor) Name() string {
	return d.Kind.String()
}

func (d Descriptor) Parameters() map[string]interface{} {
	return Parameters(d.Fields)
}

// Definition is the wire advertisement sent to the completion backend.
func (d Descriptor) Definition() contract.ToolDef {
	return contract.ToolDef{
		Name:        d.Name(),
		Description: d.Description,
		Parameters:  d.Parameters(),
	}
}

// Catalog holds the fixed tool set. It is safe for concurrent use because it
// is never mutated after construction.
type Catalog struct {
	descriptors map[Kind]Descriptor
}

func NewCatalog(descriptors ...Descriptor) *Catalog {
	c := &Catalog{descriptors: make(map[Kind]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		d.Metadata = normalizeToolMetadata(d.Metadata)
		c.descriptors[d.Kind] = d
	}
	return c
}

// DefaultCatalog returns the five naturalist-data tools.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Descriptor{
			Kind:        KindObservations,
			Description: "Récupère des observations via la route GeoNature /synthese/for_web.",
			Fields: []FieldSpec{
				{Name: "filters", Type: FieldObject, Description: "Filtres JSON à transmettre à la route."},
				{Name: "limit", Type: FieldInteger, Description: "Nombre maximal de résultats."},
				{Name: "output_format", Type: FieldString, Enum: []string{"ungrouped_geom", "grouped_geom", "grouped_geom_by_areas"}},
			},
			Metadata: ToolMetadata{Capabilities: []string{"observations.read", "user.scoped"}, Result: ShapeObject},
		},
		Descriptor{
			Kind:        KindGeoInfo,
			Description: "Retourne les intersections RefGeo et l'altitude min/max.",
			Fields: []FieldSpec{
				{Name: "geometry", Type: FieldObject, Description: "Géométrie GeoJSON.", Required: true},
				{Name: "area_type", Type: FieldString},
				{Name: "id_type", Type: FieldInteger},
			},
			Metadata: ToolMetadata{Capabilities: []string{"geo.read", "user.scoped"}, Result: ShapeObject},
		},
		Descriptor{
			Kind: KindReport,
			Description: "Génère un rapport téléchargeable à partir des données synthèse et " +
				"retourne les métadonnées nécessaires au téléchargement.",
			Fields: []FieldSpec{
				{Name: "filters", Type: FieldObject, Description: "Filtres JSON à transmettre à la route synthèse."},
				{Name: "limit", Type: FieldInteger, Description: "Nombre maximal de résultats à inclure dans le rapport."},
				{Name: "report_type", Type: FieldString, Description: "Étiquette humaine du rapport (ex: synthese_site)."},
				{Name: "layout", Type: FieldObject, Description: "Mise en page du rapport (header, summary, table, notes, footnote, sections)."},
				{Name: "format", Type: FieldString, Description: "Format de sortie souhaité (JSON par défaut, PDF disponible).", Enum: []string{"json", "pdf"}},
			},
			Metadata: ToolMetadata{Capabilities: []string{"report.generate", "user.scoped"}, Result: ShapeObject},
		},
		Descriptor{
			Kind:        KindListDocs,
			Description: "Liste les documents de la documentation GeoNature, éventuellement filtrés par une requête.",
			Fields: []FieldSpec{
				{Name: "query", Type: FieldString, Description: "Mots-clés de recherche."},
				{Name: "limit", Type: FieldInteger, Description: "Nombre maximal de documents."},
			},
			Metadata: ToolMetadata{Capabilities: []string{"docs.list"}, Result: ShapeList},
		},
		Descriptor{
			Kind:        KindReadDoc,
			Description: "Lit un document de la documentation GeoNature (chemin ou URI de ressource).",
			Fields: []FieldSpec{
				{Name: "target", Type: FieldString, Description: "Chemin ou URI du document.", Required: true},
				{Name: "as_text", Type: FieldBoolean, Description: "Retourner le contenu en texte brut."},
			},
			Metadata: ToolMetadata{Capabilities: []string{"docs.read"}, Result: ShapeObject},
		},
	)
}

func (c *Catalog) Lookup(kind Kind) (Descriptor, bool) {
	d, ok := c.descriptors[kind]
	return d, ok
}

// Descriptors returns every tool ordered by kind.
func (c *Catalog) Descriptors() []Descriptor {
	kinds := make([]int, 0, len(c.descriptors))
	for k := range c.descriptors {
		kinds = append(kinds, int(k))
	}
	sort.Ints(kinds)

	out := make([]Descriptor, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, c.descriptors[Kind(k)])
	}
	return out
}

func (c *Catalog) Definitions() []contract.ToolDef {
	descriptors := c.Descriptors()
	defs := make([]contract.ToolDef, 0, len(descriptors))
	for _, d := range descriptors {
		defs = append(defs, d.Definition())
	}
	return defs
}
