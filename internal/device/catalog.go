package device

// Catalog is the static, per-tenant mapping from type name to attribute
// schema. It is populated once during startup and read-only afterwards, so
// concurrent resolution needs no locking.
type Catalog struct {
	types map[string]map[string]TypeDefinition // tenant key -> type name -> definition
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		types: make(map[string]map[string]TypeDefinition),
	}
}

// Load declares a tenant's type definitions. It must only be called during
// startup, before any Resolve; later mutation would break the lock-free
// read contract.
func (c *Catalog) Load(tenant Tenant, defs []TypeDefinition) {
	byName, ok := c.types[tenant.Key()]
	if !ok {
		byName = make(map[string]TypeDefinition, len(defs))
		c.types[tenant.Key()] = byName
	}
	for _, def := range defs {
		byName[def.Name] = def
	}
}

// Resolve returns the tenant's definition for the given type name.
// Returns ErrTypeNotFound if the tenant has not declared the type.
func (c *Catalog) Resolve(tenant Tenant, typeName string) (TypeDefinition, error) {
	byName, ok := c.types[tenant.Key()]
	if !ok {
		return TypeDefinition{}, ErrTypeNotFound
	}
	def, ok := byName[typeName]
	if !ok {
		return TypeDefinition{}, ErrTypeNotFound
	}
	return def, nil
}
