package moldflow

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/injectionflow/platedist/mesh"
	"github.com/injectionflow/platedist/utils"
)

// Patran neutral packet types
const (
	packetNode    = 1
	packetElement = 2
	packetEnd     = 99
)

// patranShapes maps the element packet shape code IV to an element type
var patranShapes = map[int]utils.ElementType{
	2: utils.Line,
	3: utils.Triangle,
	4: utils.Quad,
	5: utils.Tet,
}

// packetHeader is the first card of every packet: IT, ID, IV, KC, N1..N5
// in (I2, 8I8) format
type packetHeader struct {
	IT, ID, IV, KC int
	N              [5]int
}

// ReadPatran reads the nodes and elements of a Patran neutral file with
// every coordinate multiplied by scale
func ReadPatran(filename string, scale float64) (*mesh.Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	msh, err := DecodePatran(file, scale)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return msh, nil
}

// DecodePatran reads Patran neutral packets from r
func DecodePatran(r io.Reader, scale float64) (*mesh.Mesh, error) {
	var (
		scanner = bufio.NewScanner(r)
		msh     = mesh.NewMesh()
		lineNum int
	)
	scanner.Buffer(make([]byte, 1<<16), 1<<20)
	nextCard := func() (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("%w: unexpected end of file after line %d", ErrMalformedPatran, lineNum)
		}
		lineNum++
		return strings.TrimRight(scanner.Text(), "\r"), nil
	}

	msh.FormatVersion = "patran"
	for {
		card, err := nextCard()
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(card) == "" {
			continue
		}
		hdr, err := parseHeader(card)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		switch hdr.IT {
		case packetEnd:
			msh.Finalize()
			return msh, nil

		case packetNode:
			if hdr.KC < 1 {
				return nil, fmt.Errorf("%w: node %d has card count %d", ErrMalformedPatran, hdr.ID, hdr.KC)
			}
			if card, err = nextCard(); err != nil {
				return nil, err
			}
			xyz, err := fixedFloats(card, 16, 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: node %d: %w", lineNum, hdr.ID, err)
			}
			for k := range xyz {
				xyz[k] *= scale
			}
			msh.AddNode(hdr.ID, xyz)
			// Control card: ICF, GTYPE, NDF, CONFIG, CID, PSPC
			for k := 1; k < hdr.KC; k++ {
				if _, err = nextCard(); err != nil {
					return nil, err
				}
			}

		case packetElement:
			if err = readElementPacket(hdr, nextCard, msh); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}

		default:
			// Title, summary, properties and anything else is skipped by card count
			for k := 0; k < hdr.KC; k++ {
				if _, err = nextCard(); err != nil {
					return nil, err
				}
			}
		}
	}
}

// readElementPacket reads the control card (NODES, CONFIG, PID, CEID, q1..q3)
// and the node cards (10 I8 per card) of one element
func readElementPacket(hdr packetHeader, nextCard func() (string, error), msh *mesh.Mesh) error {
	if hdr.KC < 2 {
		return fmt.Errorf("%w: element %d has card count %d", ErrMalformedPatran, hdr.ID, hdr.KC)
	}
	card, err := nextCard()
	if err != nil {
		return err
	}
	ctl, err := fixedInts(card, 0, 8, 3)
	if err != nil {
		return fmt.Errorf("element %d control card: %w", hdr.ID, err)
	}
	numNodes, pid := ctl[0], ctl[2]

	var nodes []int
	for k := 1; k < hdr.KC; k++ {
		if card, err = nextCard(); err != nil {
			return err
		}
		if len(nodes) >= numNodes {
			continue
		}
		vals, err := fixedInts(card, 0, 8, 10)
		if err != nil {
			return fmt.Errorf("element %d node card: %w", hdr.ID, err)
		}
		for _, v := range vals {
			if v != 0 && len(nodes) < numNodes {
				nodes = append(nodes, v)
			}
		}
	}

	etype, ok := patranShapes[hdr.IV]
	if !ok {
		// Shapes the solver has no use for, e.g. wedges from 3D meshes
		return nil
	}
	if len(nodes) != etype.GetNumNodes() {
		return fmt.Errorf("%w: %s element %d lists %d nodes",
			ErrMalformedPatran, etype, hdr.ID, len(nodes))
	}
	return msh.AddElement(hdr.ID, etype, []int{pid}, nodes)
}

func parseHeader(card string) (hdr packetHeader, err error) {
	if len(card) < 2 {
		err = fmt.Errorf("%w: short header card %q", ErrMalformedPatran, card)
		return
	}
	if hdr.IT, err = strconv.Atoi(strings.TrimSpace(card[:2])); err != nil {
		err = fmt.Errorf("%w: packet type %q", ErrMalformedPatran, card[:2])
		return
	}
	var vals []int
	if vals, err = fixedInts(card, 2, 8, 8); err != nil {
		return
	}
	hdr.ID, hdr.IV, hdr.KC = vals[0], vals[1], vals[2]
	copy(hdr.N[:], vals[3:])
	return
}

// fixedInts parses up to n integer fields of the given width starting at
// offset; blank or missing fields are zero
func fixedInts(card string, offset, width, n int) (vals []int, err error) {
	vals = make([]int, n)
	for k := 0; k < n; k++ {
		field := fixedField(card, offset+k*width, width)
		if field == "" {
			continue
		}
		if vals[k], err = strconv.Atoi(field); err != nil {
			return nil, fmt.Errorf("%w: integer field %q", ErrMalformedPatran, field)
		}
	}
	return
}

// fixedFloats parses exactly n float fields of the given width
func fixedFloats(card string, width, n int) (vals []float64, err error) {
	vals = make([]float64, n)
	for k := 0; k < n; k++ {
		field := fixedField(card, k*width, width)
		if field == "" {
			return nil, fmt.Errorf("%w: missing real field %d in %q", ErrMalformedPatran, k, card)
		}
		if vals[k], err = strconv.ParseFloat(fortranExponent(field), 64); err != nil {
			return nil, fmt.Errorf("%w: real field %q", ErrMalformedPatran, field)
		}
	}
	return
}

func fixedField(card string, from, width int) string {
	if from >= len(card) {
		return ""
	}
	to := from + width
	if to > len(card) {
		to = len(card)
	}
	return strings.TrimSpace(card[from:to])
}

// fortranExponent accepts D exponents, e.g. 1.5D+02
func fortranExponent(s string) string {
	return strings.NewReplacer("D", "E", "d", "e").Replace(s)
}
