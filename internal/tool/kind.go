package tool

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind enumerates the tools the assistant can call. The set is closed.
type Kind int

const (
	KindObservations Kind = iota + 1
	KindGeoInfo
	KindReport
	KindListDocs
	KindReadDoc
)

const (
	NameObservations = "fetch_synthese_for_web"
	NameGeoInfo      = "fetch_info_geo"
	NameReport       = "generate_report"
	NameListDocs     = "list_geonature_docs"
	NameReadDoc      = "read_geonature_doc"
)

// DefaultDocsListLimit is sent when the model omits a limit on list_geonature_docs.
const DefaultDocsListLimit = 50

var kindNames = map[Kind]string{
	KindObservations: NameObservations,
	KindGeoInfo:      NameGeoInfo,
	KindReport:       NameReport,
	KindListDocs:     NameListDocs,
	KindReadDoc:      NameReadDoc,
}

// ParseKind maps an advertised tool name to its kind.
func ParseKind(name string) (Kind, bool) {
	switch strings.TrimSpace(name) {
	case NameObservations:
		return KindObservations, true
	case NameGeoInfo:
		return KindGeoInfo, true
	case NameReport:
		return KindReport, true
	case NameListDocs:
		return KindListDocs, true
	case NameReadDoc:
		return KindReadDoc, true
	default:
		return 0, false
	}
}

// String returns the name the tool is advertised and invoked under.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// UserScoped reports whether the caller identity is forwarded to the backend.
func (k Kind) UserScoped() bool {
	switch k {
	case KindObservations, KindGeoInfo, KindReport:
		return true
	default:
		return false
	}
}

// Args is the typed argument set of one tool invocation.
type Args interface {
	Kind() Kind
	// Wire returns the argument map sent to the tool backend.
	Wire(identity string) (map[string]any, error)
}

type ObservationsArgs struct {
	Filters      map[string]any `json:"filters,omitempty"`
	Limit        *int           `json:"limit,omitempty"`
	OutputFormat string         `json:"output_format,omitempty"`
}

func (ObservationsArgs) Kind() Kind { return KindObservations }

func (a ObservationsArgs) Wire(identity string) (map[string]any, error) {
	out := map[string]any{}
	if err := putJSON(out, "filters", a.Filters); err != nil {
		return nil, err
	}
	if a.Limit != nil {
		out["limit"] = *a.Limit
	}
	if a.OutputFormat != "" {
		out["output_format"] = a.OutputFormat
	}
	putIdentity(out, identity)
	return out, nil
}

type GeoInfoArgs struct {
	Geometry map[string]any `json:"geometry"`
	AreaType string         `json:"area_type,omitempty"`
	IDType   *int           `json:"id_type,omitempty"`
}

func (GeoInfoArgs) Kind() Kind { return KindGeoInfo }

func (a GeoInfoArgs) Wire(identity string) (map[string]any, error) {
	geometry, err := json.Marshal(a.Geometry)
	if err != nil {
		return nil, fmt.Errorf("encode geometry: %w", err)
	}
	out := map[string]any{"geometry": string(geometry)}
	if a.AreaType != "" {
		out["area_type"] = a.AreaType
	}
	if a.IDType != nil {
		out["id_type"] = *a.IDType
	}
	putIdentity(out, identity)
	return out, nil
}

type ReportArgs struct {
	Filters    map[string]any `json:"filters,omitempty"`
	Limit      *int           `json:"limit,omitempty"`
	ReportType string         `json:"report_type,omitempty"`
	Format     string         `json:"format,omitempty"`
	// Layout is the canonical JSON text of the layout object, set by the dispatcher.
	Layout string `json:"-"`
}

func (ReportArgs) Kind() Kind { return KindReport }

func (a ReportArgs) Wire(identity string) (map[string]any, error) {
	out := map[string]any{}
	if err := putJSON(out, "filters", a.Filters); err != nil {
		return nil, err
	}
	if a.Limit != nil {
		out["limit"] = *a.Limit
	}
	if a.ReportType != "" {
		out["report_type"] = a.ReportType
	}
	if a.Format != "" {
		out["format"] = a.Format
	}
	if a.Layout != "" {
		out["layout"] = a.Layout
	}
	putIdentity(out, identity)
	return out, nil
}

type ListDocsArgs struct {
	Query string `json:"query,omitempty"`
	Limit *int   `json:"limit,omitempty"`
}

func (ListDocsArgs) Kind() Kind { return KindListDocs }

func (a ListDocsArgs) Wire(string) (map[string]any, error) {
	limit := DefaultDocsListLimit
	if a.Limit != nil {
		limit = *a.Limit
	}
	out := map[string]any{"limit": limit}
	if a.Query != "" {
		out["query"] = a.Query
	}
	return out, nil
}

type ReadDocArgs struct {
	Target string `json:"target"`
	AsText *bool  `json:"as_text,omitempty"`
}

func (ReadDocArgs) Kind() Kind { return KindReadDoc }

// Text reports whether the document is requested as plain text. Defaults to true.
func (a ReadDocArgs) Text() bool {
	return a.AsText == nil || *a.AsText
}

func (a ReadDocArgs) Wire(string) (map[string]any, error) {
	return map[string]any{"target": a.Target, "as_text": a.Text()}, nil
}

// DecodeArgs converts validated JSON arguments into the typed set of kind.
func DecodeArgs(kind Kind, raw map[string]any) (Args, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}

	switch kind {
	case KindObservations:
		var a ObservationsArgs
		err = json.Unmarshal(b, &a)
		return a, err
	case KindGeoInfo:
		var a GeoInfoArgs
		err = json.Unmarshal(b, &a)
		return a, err
	case KindReport:
		var a ReportArgs
		err = json.Unmarshal(b, &a)
		return a, err
	case KindListDocs:
		var a ListDocsArgs
		err = json.Unmarshal(b, &a)
		return a, err
	case KindReadDoc:
		var a ReadDocArgs
		err = json.Unmarshal(b, &a)
		return a, err
	default:
		return nil, fmt.Errorf("no argument type for %s", kind)
	}
}

// putJSON stores v as a JSON-encoded string. Empty maps are omitted.
func putJSON(out map[string]any, key string, v map[string]any) error {
	if len(v) == 0 {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	out[key] = string(b)
	return nil
}

func putIdentity(out map[string]any, identity string) {
	if identity != "" {
		out["api_token"] = identity
	}
}
