package diagnostics

// Registry manages all health metric collectors and provides a way to add them dynamically.
type Registry struct {
	collectors map[string]Collector
}

// NewRegistry creates a new Registry instance.
func NewRegistry() *Registry {
	return &Registry{
		collectors: make(map[string]Collector),
	}
}

// Register adds a new collector to the registry.
func (r *Registry) Register(collector Collector) {
	r.collectors[collector.Name()] = collector
}

// GetCollectors returns all the collectors registered in the registry.
func (r *Registry) GetCollectors() map[string]Collector {
	return r.collectors
}
