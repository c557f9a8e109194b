package llm

// VertexParams carries the Vertex-specific request parameters injected for
// Google-backed providers (spec §4.2 "Vertex adaptation").
type VertexParams struct {
	Project  string
	Location string
}

// AdaptVertex returns the Vertex project/location to inject for prov,
// falling back to process-wide defaults when the provider record itself has
// none set. ok is false when prov is not a Vertex-backed provider, in which
// case callers must not inject vertex parameters at all.
func AdaptVertex(prov Provider, defaultProject, defaultLocation string) (params VertexParams, ok bool) {
	if !prov.IsVertex() {
		return VertexParams{}, false
	}
	project := prov.VertexProject
	if project == "" {
		project = defaultProject
	}
	location := prov.VertexLocation
	if location == "" {
		location = defaultLocation
	}
	return VertexParams{Project: project, Location: location}, true
}
