package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// gofpdf (el motor debajo de Maroto) emite los objetos de fuente en orden de
// iteración de mapa y sella /ModDate con el reloj, así que dos generaciones
// del mismo documento producen bytes distintos. canonicalize reescribe el PDF
// en una forma estable: los objetos de fuente se reordenan por su id de
// fuente (hash del contenido, estable entre ejecuciones), el diccionario
// /Font se emite en ese mismo orden, /ModDate se fija a /CreationDate y la
// tabla xref se reconstruye con los offsets resultantes.
func canonicalize(pdf []byte) ([]byte, error) {
	sx := bytes.LastIndex(pdf, []byte("startxref\n"))
	if sx < 0 {
		return nil, errors.New("sin startxref")
	}
	rest := pdf[sx+len("startxref\n"):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 {
		return nil, errors.New("startxref truncado")
	}
	xrefOff, err := strconv.Atoi(string(rest[:nl]))
	if err != nil || xrefOff <= 0 || xrefOff >= len(pdf) {
		return nil, fmt.Errorf("offset de xref inválido: %q", rest[:nl])
	}

	const xrefHead = "xref\n0 "
	if !bytes.HasPrefix(pdf[xrefOff:], []byte(xrefHead)) {
		return nil, errors.New("cabecera de xref inesperada")
	}
	p := xrefOff + len(xrefHead)
	nl = bytes.IndexByte(pdf[p:], '\n')
	if nl < 0 {
		return nil, errors.New("xref truncada")
	}
	count, err := strconv.Atoi(string(pdf[p : p+nl]))
	if err != nil || count < 2 {
		return nil, fmt.Errorf("tamaño de xref inválido: %q", pdf[p:p+nl])
	}
	n := count - 1

	// Entradas de 20 bytes; la 0 es la entrada libre.
	entries := p + nl + 1
	if entries+20*count > sx {
		return nil, errors.New("xref fuera de rango")
	}
	offs := make([]int, count)
	for j := 1; j < count; j++ {
		e := entries + 20*j
		off, err := strconv.Atoi(string(pdf[e : e+10]))
		if err != nil {
			return nil, fmt.Errorf("entrada xref %d ilegible", j)
		}
		offs[j] = off
	}
	trailer := pdf[entries+20*count : sx]

	// gofpdf escribe los objetos en orden numérico, contiguos hasta la xref.
	bodies := make([][]byte, count)
	for j := 1; j <= n; j++ {
		end := xrefOff
		if j < n {
			end = offs[j+1]
		}
		if offs[j] <= 0 || offs[j] >= end {
			return nil, fmt.Errorf("objeto %d fuera de orden", j)
		}
		obj := pdf[offs[j]:end]
		head := []byte(strconv.Itoa(j) + " 0 obj\n")
		if !bytes.HasPrefix(obj, head) {
			return nil, fmt.Errorf("objeto %d no empieza donde indica la xref", j)
		}
		bodies[j] = obj[len(head):]
	}

	if err := reorderFonts(bodies, n); err != nil {
		return nil, err
	}
	pinModDate(bodies, n)

	// Reconstrucción con offsets recalculados, mismo formato que gofpdf.
	var out bytes.Buffer
	out.Write(pdf[:offs[1]])
	newOff := make([]int, count)
	for j := 1; j <= n; j++ {
		newOff[j] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n", j)
		out.Write(bodies[j])
	}
	xo := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n", count)
	out.WriteString("0000000000 65535 f \n")
	for j := 1; j <= n; j++ {
		fmt.Fprintf(&out, "%010d 00000 n \n", newOff[j])
	}
	out.Write(trailer)
	fmt.Fprintf(&out, "startxref\n%d\n%%%%EOF\n", xo)
	return out.Bytes(), nil
}

var fontRefRe = regexp.MustCompile(`(?m)^/F([0-9a-f]+) (\d+) 0 R$`)

// reorderFonts asigna los números de objeto de las fuentes en el orden del id
// de fuente y reescribe el diccionario /Font del objeto de recursos para que
// las referencias sigan apuntando a la fuente correcta.
func reorderFonts(bodies [][]byte, n int) error {
	fontPrefix := []byte("<</Type /Font\n/BaseFont /")
	var fontNums []int
	for j := 1; j <= n; j++ {
		if bytes.HasPrefix(bodies[j], fontPrefix) {
			fontNums = append(fontNums, j)
		}
	}
	if len(fontNums) < 2 {
		return nil // una sola fuente ya es estable
	}
	sort.Ints(fontNums)

	resNum := 0
	for j := 1; j <= n; j++ {
		if bytes.Contains(bodies[j], []byte("/ProcSet [")) && bytes.Contains(bodies[j], []byte("/Font <<")) {
			resNum = j
			break
		}
	}
	if resNum == 0 {
		return errors.New("sin diccionario de recursos")
	}
	res := bodies[resNum]
	i0 := bytes.Index(res, []byte("/Font <<\n"))
	regionStart := i0 + len("/Font <<\n")
	i1 := bytes.Index(res[regionStart:], []byte(">>"))
	if i1 < 0 {
		return errors.New("diccionario /Font sin cierre")
	}
	matches := fontRefRe.FindAllSubmatch(res[regionStart:regionStart+i1], -1)
	if len(matches) != len(fontNums) {
		return fmt.Errorf("referencias de fuente (%d) no cuadran con los objetos (%d)", len(matches), len(fontNums))
	}

	type fontRef struct {
		id  string
		num int
	}
	refs := make([]fontRef, 0, len(matches))
	for _, m := range matches {
		num, err := strconv.Atoi(string(m[2]))
		if err != nil {
			return fmt.Errorf("referencia de fuente ilegible: %q", m[0])
		}
		refs = append(refs, fontRef{id: string(m[1]), num: num})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].id < refs[j].id })

	moved := make(map[int][]byte, len(refs))
	var dict bytes.Buffer
	for k, r := range refs {
		target := fontNums[k]
		moved[target] = bodies[r.num]
		fmt.Fprintf(&dict, "/F%s %d 0 R\n", r.id, target)
	}
	for num, b := range moved {
		bodies[num] = b
	}

	var newRes []byte
	newRes = append(newRes, res[:regionStart]...)
	newRes = append(newRes, dict.Bytes()...)
	newRes = append(newRes, res[regionStart+i1:]...)
	bodies[resNum] = newRes
	return nil
}

var (
	creationDateRe = regexp.MustCompile(`/CreationDate \(D:(\d{14})\)`)
	modDateRe      = regexp.MustCompile(`/ModDate \(D:\d{14}\)`)
)

// pinModDate iguala /ModDate a /CreationDate en el objeto de información;
// gofpdf lo sella con el reloj y no expone forma de fijarlo.
func pinModDate(bodies [][]byte, n int) {
	for j := 1; j <= n; j++ {
		m := creationDateRe.FindSubmatch(bodies[j])
		if m == nil {
			continue
		}
		bodies[j] = modDateRe.ReplaceAll(bodies[j], []byte("/ModDate (D:"+string(m[1])+")"))
		return
	}
}
