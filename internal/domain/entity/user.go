package entity

// Roles válidos del actor.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleCashier = "cashier"
)

// Actor identidad de quien invoca una operación, con su rol y bodegas asignadas.
// Se pasa explícitamente a cada caso de uso; la emisión del token vive fuera de este servicio.
type Actor struct {
	ID                   string
	Role                 string
	PrimaryWarehouseID   string   // asignación legacy única
	AssignedWarehouseIDs []string // asignación muchos-a-muchos
}

// IsAdmin indica rol administrador.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// IsManager indica rol gerente.
func (a Actor) IsManager() bool { return a.Role == RoleManager }

// WarehouseIDs devuelve las bodegas asignadas incluyendo la primaria, sin duplicados.
func (a Actor) WarehouseIDs() []string {
	seen := make(map[string]struct{}, len(a.AssignedWarehouseIDs)+1)
	out := make([]string, 0, len(a.AssignedWarehouseIDs)+1)
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(a.PrimaryWarehouseID)
	for _, id := range a.AssignedWarehouseIDs {
		add(id)
	}
	return out
}
