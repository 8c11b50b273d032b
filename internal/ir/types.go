package ir

import "math"

// Handle is the backend identity of a variable or constraint.
// Two structurally identical entities in different models have different handles.
type Handle string

// NoVar marks an absent operand (e.g. the constant indicator of a ridge cone).
const NoVar = -1

// Domain is the value domain of a variable.
type Domain string

const (
	DomainBinary     Domain = "binary"
	DomainContinuous Domain = "continuous"
)

// Role identifies the variable family a variable belongs to.
type Role string

const (
	RoleSelector       Role = "selector"        // b_i
	RoleFactor         Role = "factor"          // z_{i,j}
	RoleEpigraph       Role = "epigraph"        // t_{i,j}, i <= n
	RoleRidgeEpigraph  Role = "ridge_epigraph"  // t_{n+1,j}
	RoleCertificate    Role = "certificate"     // J_{p,q}
	RoleResidual       Role = "residual"        // eps_{p,q}
	RoleResidualSquare Role = "residual_square" // epssq_{p,q}
	RoleObjective      Role = "objective"       // y
)

// ValidRoles lists every role in catalog emission order.
var ValidRoles = []Role{
	RoleSelector,
	RoleFactor,
	RoleEpigraph,
	RoleRidgeEpigraph,
	RoleCertificate,
	RoleResidual,
	RoleResidualSquare,
	RoleObjective,
}

// ConstraintKind categorizes the nonlinear part of a constraint.
type ConstraintKind string

const (
	KindLinear       ConstraintKind = "linear"
	KindRotatedCone  ConstraintKind = "rotated-cone"
	KindPowerProduct ConstraintKind = "nonlinear-power-product"
	KindLogSum       ConstraintKind = "nonlinear-log-sum"
)

// SelectionMode is the kind of constraint placed on the binary selectors.
type SelectionMode string

const (
	ModeExact    SelectionMode = "exact"
	ModeKnapsack SelectionMode = "knapsack"
)

// Inf returns +Inf; used for unbounded sides.
func Inf() float64 { return math.Inf(1) }

// NegInf returns -Inf; used for unbounded sides.
func NegInf() float64 { return math.Inf(-1) }

// Variable describes one decision variable.
// I and J are 1-based family indices (J is 0 for single-index families).
type Variable struct {
	Name   string  `json:"name"`
	Role   Role    `json:"role"`
	I      int     `json:"i"`
	J      int     `json:"j"`
	Domain Domain  `json:"domain"`
	Lower  float64 `json:"-"`
	Upper  float64 `json:"-"`
	Obj    float64 `json:"obj"`
	Handle Handle  `json:"-"`
}

// Fixed reports whether the variable's bounds pin it to a single value.
func (v Variable) Fixed() bool {
	return v.Lower == v.Upper
}

// Term is a single linear term coef·x[Var].
type Term struct {
	Var  int     `json:"var"`
	Coef float64 `json:"coef"`
}

// ConeTerm is the rotated-cone expression x² − y·z.
// Z == NoVar means the indicator is the constant 1.
type ConeTerm struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// ProductTerm is Coef · Π x[v]^Exponent over Vars.
type ProductTerm struct {
	Vars     []int   `json:"vars"`
	Exponent float64 `json:"exponent"`
	Coef     float64 `json:"coef"`
}

// LogSumTerm is Σ Coefs[k] · log x[Vars[k]].
type LogSumTerm struct {
	Vars  []int     `json:"vars"`
	Coefs []float64 `json:"coefs"`
}

// Flags mirror the usual MINLP constraint attributes.
type Flags struct {
	Initial   bool `json:"initial"`
	Separate  bool `json:"separate"`
	Enforce   bool `json:"enforce"`
	Check     bool `json:"check"`
	Propagate bool `json:"propagate"`
	Removable bool `json:"removable"`
}

// ModelFlags are the attributes of a constraint that defines the model.
func ModelFlags() Flags {
	return Flags{Initial: true, Separate: true, Enforce: true, Check: true, Propagate: true}
}

// CutFlags are the attributes of a redundant linear cut: it lives in the
// initial relaxation but is neither enforced nor checked and may age out.
func CutFlags() Flags {
	return Flags{Initial: true, Separate: true, Removable: true}
}

// Constraint describes Lower <= activity <= Upper where activity is the sum
// of the linear part and at most one nonlinear part.
type Constraint struct {
	Name    string         `json:"name"`
	Kind    ConstraintKind `json:"kind"`
	Linear  []Term         `json:"linear,omitempty"`
	Cone    *ConeTerm      `json:"cone,omitempty"`
	Product *ProductTerm   `json:"product,omitempty"`
	LogSum  *LogSumTerm    `json:"log_sum,omitempty"`
	Lower   float64        `json:"-"`
	Upper   float64        `json:"-"`
	Flags   Flags          `json:"flags"`
	Handle  Handle         `json:"-"`
}

// Operands returns the catalog indices referenced by the constraint, in
// order of appearance and without duplicates.
func (c Constraint) Operands() []int {
	seen := make(map[int]bool)
	var out []int
	add := func(v int) {
		if v == NoVar || seen[v] {
			return
		}
		seen[v] = true
		out = append(out, v)
	}
	for _, t := range c.Linear {
		add(t.Var)
	}
	if c.Cone != nil {
		add(c.Cone.X)
		add(c.Cone.Y)
		add(c.Cone.Z)
	}
	if c.Product != nil {
		for _, v := range c.Product.Vars {
			add(v)
		}
	}
	if c.LogSum != nil {
		for _, v := range c.LogSum.Vars {
			add(v)
		}
	}
	return out
}

// Layout records the catalog index of every variable family.
// Matrices are 0-based Go slices; T has n+1 rows, the last one being the
// ridge epigraph row.
type Layout struct {
	B     []int   `json:"b"`
	Z     [][]int `json:"z"`
	T     [][]int `json:"t"`
	J     [][]int `json:"j"`
	Eps   [][]int `json:"eps"`
	EpsSq [][]int `json:"epssq"`
	Y     int     `json:"y"`
}

// Model is a compiled D-optimal design model.
type Model struct {
	Name        string        `json:"name"`
	N           int           `json:"n"`
	D           int           `json:"d"`
	K           int           `json:"k"`
	Mode        SelectionMode `json:"mode"`
	Ridge       float64       `json:"ridge"`
	Weights     []float64     `json:"weights,omitempty"`
	Capacity    float64       `json:"capacity"`
	Objective   string        `json:"objective"`
	Variables   []Variable    `json:"variables"`
	Constraints []Constraint  `json:"constraints"`
	Layout      Layout        `json:"layout"`
}

// Variable returns the variable with the given name.
func (m *Model) Variable(name string) (Variable, bool) {
	for _, v := range m.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// Constraint returns the constraint with the given name.
func (m *Model) Constraint(name string) (Constraint, bool) {
	for _, c := range m.Constraints {
		if c.Name == name {
			return c, true
		}
	}
	return Constraint{}, false
}

// CountRole returns the number of variables with the given role.
func (m *Model) CountRole(r Role) int {
	n := 0
	for _, v := range m.Variables {
		if v.Role == r {
			n++
		}
	}
	return n
}

// CountKind returns the number of constraints of the given kind.
func (m *Model) CountKind(k ConstraintKind) int {
	n := 0
	for _, c := range m.Constraints {
		if c.Kind == k {
			n++
		}
	}
	return n
}

// Handles returns every entity handle in creation order: variables first,
// then constraints.
func (m *Model) Handles() []Handle {
	out := make([]Handle, 0, len(m.Variables)+len(m.Constraints))
	for _, v := range m.Variables {
		out = append(out, v.Handle)
	}
	for _, c := range m.Constraints {
		out = append(out, c.Handle)
	}
	return out
}

// Point is an assignment of values to the variables of a Model, indexed by
// catalog position.
type Point []float64
