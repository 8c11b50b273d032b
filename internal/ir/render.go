package ir

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"
)

// Render writes a deterministic, human-readable listing of the model.
// The format is stable and used for golden snapshots:
//
//	model <name>
//	  n=.. d=.. mode=.. k=.. ridge=.. objective=..
//	minimize
//	  <objective expression>
//	variables
//	  <name> <domain> [<lower>, <upper>]
//	constraints
//	  <name> <kind>: <expression> <relation> [cut]
func Render(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "model %s\n", m.Name)
	fmt.Fprintf(bw, "  %s\n", renderHeader(m))

	fmt.Fprintln(bw, "minimize")
	var obj []Term
	for i, v := range m.Variables {
		if v.Obj != 0 {
			obj = append(obj, Term{Var: i, Coef: v.Obj})
		}
	}
	if len(obj) == 0 {
		fmt.Fprintln(bw, "  0")
	} else {
		fmt.Fprintf(bw, "  %s\n", renderLinear(m, obj, true))
	}

	fmt.Fprintln(bw, "variables")
	for _, v := range m.Variables {
		fmt.Fprintf(bw, "  %s %s [%s, %s]\n", v.Name, v.Domain, FormatNumber(v.Lower), FormatNumber(v.Upper))
	}

	fmt.Fprintln(bw, "constraints")
	for _, c := range m.Constraints {
		line := fmt.Sprintf("  %s %s: %s", c.Name, c.Kind, renderRelation(c.Lower, c.Upper, renderExpr(m, c)))
		if c.Flags.Removable {
			line += " [cut]"
		}
		fmt.Fprintln(bw, line)
	}

	return bw.Flush()
}

// RenderString is Render into a string.
func RenderString(m *Model) string {
	var sb strings.Builder
	_ = Render(&sb, m)
	return sb.String()
}

// FormatNumber formats a number for listings: shortest round-trip form,
// with "+inf" / "-inf" for infinities.
func FormatNumber(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "+inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	b, err := marshalCanonicalNumber(f)
	if err != nil {
		return fmt.Sprint(f)
	}
	return string(b)
}

func renderHeader(m *Model) string {
	parts := []string{
		fmt.Sprintf("n=%d", m.N),
		fmt.Sprintf("d=%d", m.D),
		fmt.Sprintf("mode=%s", m.Mode),
		fmt.Sprintf("k=%d", m.K),
	}
	if m.Mode == ModeKnapsack {
		parts = append(parts, "capacity="+FormatNumber(m.Capacity))
		ws := make([]string, len(m.Weights))
		for i, w := range m.Weights {
			ws[i] = FormatNumber(w)
		}
		parts = append(parts, "weights=["+strings.Join(ws, " ")+"]")
	}
	parts = append(parts, "ridge="+FormatNumber(m.Ridge), "objective="+m.Objective)
	return strings.Join(parts, " ")
}

func renderRelation(lower, upper float64, expr string) string {
	switch {
	case lower == upper:
		return fmt.Sprintf("%s = %s", expr, FormatNumber(lower))
	case math.IsInf(lower, -1) && math.IsInf(upper, 1):
		return expr + " free"
	case math.IsInf(lower, -1):
		return fmt.Sprintf("%s <= %s", expr, FormatNumber(upper))
	case math.IsInf(upper, 1):
		return fmt.Sprintf("%s >= %s", expr, FormatNumber(lower))
	default:
		return fmt.Sprintf("%s <= %s <= %s", FormatNumber(lower), expr, FormatNumber(upper))
	}
}

func varName(m *Model, idx int) string {
	if idx < 0 || idx >= len(m.Variables) {
		return fmt.Sprintf("?%d", idx)
	}
	return m.Variables[idx].Name
}

// renderExpr writes the nonlinear part first, then the linear terms.
func renderExpr(m *Model, c Constraint) string {
	var sb strings.Builder
	first := true

	switch {
	case c.Cone != nil:
		sb.WriteString(varName(m, c.Cone.X) + "^2 - " + varName(m, c.Cone.Y))
		if c.Cone.Z != NoVar {
			sb.WriteString("*" + varName(m, c.Cone.Z))
		}
		first = false
	case c.Product != nil:
		factors := make([]string, len(c.Product.Vars))
		for i, v := range c.Product.Vars {
			factors[i] = varName(m, v) + "^" + FormatNumber(c.Product.Exponent)
		}
		if c.Product.Coef != 1 {
			sb.WriteString(FormatNumber(c.Product.Coef) + " ")
		}
		sb.WriteString("prod(" + strings.Join(factors, ", ") + ")")
		first = false
	case c.LogSum != nil:
		for i, v := range c.LogSum.Vars {
			writeTerm(&sb, c.LogSum.Coefs[i], "log("+varName(m, v)+")", first)
			first = false
		}
	}

	if len(c.Linear) > 0 {
		sb.WriteString(renderLinear(m, c.Linear, first))
		first = false
	}

	if first {
		return "0"
	}
	return sb.String()
}

func renderLinear(m *Model, terms []Term, leading bool) string {
	var sb strings.Builder
	for i, t := range terms {
		writeTerm(&sb, t.Coef, varName(m, t.Var), leading && i == 0)
	}
	return sb.String()
}

// writeTerm appends "c x" with sign handling; a unit coefficient is omitted.
func writeTerm(sb *strings.Builder, coef float64, operand string, leading bool) {
	abs := math.Abs(coef)
	switch {
	case leading && coef < 0:
		sb.WriteString("-")
	case !leading && coef < 0:
		sb.WriteString(" - ")
	case !leading:
		sb.WriteString(" + ")
	}
	if abs != 1 {
		sb.WriteString(FormatNumber(abs) + " ")
	}
	sb.WriteString(operand)
}
