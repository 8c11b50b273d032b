package problem

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// LoadError reports a malformed instance stream.
type LoadError struct {
	Token   int // 1-based index of the offending token, 0 if unknown
	Message string
	Err     error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Token > 0 {
		return fmt.Sprintf("%s: token %d: %s", CodeInvalidInstance, e.Token, msg)
	}
	return fmt.Sprintf("%s: %s", CodeInvalidInstance, msg)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is matches ErrInvalidInstance.
func (e *LoadError) Is(target error) bool {
	return target == ErrInvalidInstance
}

// maxPrealloc bounds the coordinate buffer allocated from the header.
const maxPrealloc = 1 << 16

// tokenReader yields whitespace-separated tokens and counts them.
type tokenReader struct {
	sc    *bufio.Scanner
	count int
}

func (t *tokenReader) next(what string) (string, error) {
	if !t.sc.Scan() {
		if err := t.sc.Err(); err != nil {
			return "", &LoadError{Token: t.count + 1, Message: "reading " + what, Err: err}
		}
		return "", &LoadError{Token: t.count + 1, Message: "unexpected end of input, expected " + what}
	}
	t.count++
	return t.sc.Text(), nil
}

func (t *tokenReader) int(what string) (int, error) {
	tok, err := t.next(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, &LoadError{Token: t.count, Message: fmt.Sprintf("%s must be an integer, got %q", what, tok)}
	}
	return v, nil
}

func (t *tokenReader) float(what string) (float64, error) {
	tok, err := t.next(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, &LoadError{Token: t.count, Message: fmt.Sprintf("%s must be a real number, got %q", what, tok)}
	}
	return v, nil
}

// ReadInstance parses an instance stream: the header "n d k eps_raw"
// followed by n·d reals giving, for each candidate point in turn, its d
// coordinates. The returned Spec carries ε = sqrt(eps_raw), default knapsack
// weights and capacity, and has been validated.
func ReadInstance(r io.Reader) (*Spec, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)
	tr := &tokenReader{sc: sc}

	n, err := tr.int("n")
	if err != nil {
		return nil, err
	}
	d, err := tr.int("d")
	if err != nil {
		return nil, err
	}
	k, err := tr.int("k")
	if err != nil {
		return nil, err
	}
	epsRaw, err := tr.float("eps")
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, dimensionError("n", "candidate count must be positive, got %d", n)
	}
	if d < 1 {
		return nil, dimensionError("d", "dimension must be positive, got %d", d)
	}

	if d > math.MaxInt/n {
		return nil, dimensionError("d", "%d points of dimension %d overflow the design matrix", n, d)
	}

	// The header alone must not size an allocation: coordinates are
	// appended as they are read and the matrix is built once all are present.
	data := make([]float64, 0, min(n*d, maxPrealloc))
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			v, err := tr.float(fmt.Sprintf("coordinate %d of point %d", j+1, i+1))
			if err != nil {
				return nil, err
			}
			data = append(data, v)
		}
	}
	// data holds one point per row; the design matrix holds one per column.
	a := mat.DenseCopyOf(mat.NewDense(n, d, data).T())

	s := &Spec{
		N:        n,
		D:        d,
		A:        a,
		K:        k,
		Ridge:    math.Sqrt(epsRaw),
		Capacity: DefaultCapacity,
	}
	if epsRaw <= 0 {
		return nil, regularizationError("eps", "raw ridge parameter must be positive, got %v", epsRaw)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadInstance reads an instance file from disk.
func LoadInstance(path string) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open instance: %w", err)
	}
	defer f.Close()

	s, err := ReadInstance(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// WriteInstance writes s in the format read by ReadInstance. The header
// carries eps_raw = ε², so a round trip reproduces Ridge.
func WriteInstance(w io.Writer, s *Spec) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d %d %s\n", s.N, s.D, s.K, formatRawRidge(s.Ridge))
	for i := 0; i < s.N; i++ {
		for j := 0; j < s.D; j++ {
			if j > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.FormatFloat(s.A.At(j, i), 'g', -1, 64))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// formatRawRidge returns the shortest decimal eps_raw with
// sqrt(eps_raw) == ridge, falling back to the full ridge² otherwise.
func formatRawRidge(ridge float64) string {
	sq := ridge * ridge
	for prec := 1; prec < 17; prec++ {
		txt := strconv.FormatFloat(sq, 'g', prec, 64)
		if v, err := strconv.ParseFloat(txt, 64); err == nil && math.Sqrt(v) == ridge {
			return txt
		}
	}
	return strconv.FormatFloat(sq, 'g', -1, 64)
}
