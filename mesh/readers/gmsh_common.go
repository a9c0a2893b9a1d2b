package readers

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/injectionflow/platedist/mesh"
)

// ReadGmshAuto automatically detects the Gmsh format version and reads the file
func ReadGmshAuto(filename string) (*mesh.Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	gs := newGmshStream(file)
	var version string

	// Look for $MeshFormat section to determine version
	for {
		line, err := gs.readLine()
		if err != nil {
			break
		}
		if line == "$MeshFormat" {
			if next, err := gs.readLine(); err == nil {
				if parts := strings.Fields(next); len(parts) > 0 {
					version = parts[0]
				}
			}
			break
		}
	}
	file.Close()

	// Determine which reader to use based on version
	switch {
	case strings.HasPrefix(version, "4."):
		return ReadGmsh4(filename)
	case strings.HasPrefix(version, "2."):
		return ReadGmsh22(filename)
	case version == "":
		return nil, fmt.Errorf("%w: could not find $MeshFormat section in %s",
			mesh.ErrMalformedSection, filename)
	default:
		return nil, fmt.Errorf("%w: Gmsh version %s", mesh.ErrUnsupportedFormat, version)
	}
}

// gmshStream reads the mixed text/binary layout of Gmsh files
type gmshStream struct {
	r         *bufio.Reader
	binary    bool
	byteOrder binary.ByteOrder
	dataSize  int
}

func newGmshStream(r io.Reader) *gmshStream {
	return &gmshStream{
		r:         bufio.NewReaderSize(r, 1<<16),
		byteOrder: binary.LittleEndian,
		dataSize:  8,
	}
}

// readLine returns the next line with surrounding space removed, io.EOF at the end
func (gs *gmshStream) readLine() (string, error) {
	line, err := gs.r.ReadString('\n')
	if err != nil {
		if err == io.EOF && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// mustLine is readLine with EOF reported as a malformed section
func (gs *gmshStream) mustLine(section string) (string, error) {
	line, err := gs.readLine()
	if err == io.EOF {
		return "", fmt.Errorf("%w in %s", mesh.ErrUnexpectedEOF, section)
	}
	return line, err
}

// readCount reads a line holding a single integer
func (gs *gmshStream) readCount(section string) (n int, err error) {
	var line string
	if line, err = gs.mustLine(section); err != nil {
		return
	}
	if n, err = strconv.Atoi(line); err != nil {
		err = fmt.Errorf("%w: bad count %q in %s", mesh.ErrMalformedSection, line, section)
	}
	return
}

// readMeshFormat reads the MeshFormat section, common to v2.2 and v4
func (gs *gmshStream) readMeshFormat(msh *mesh.Mesh) error {
	line, err := gs.mustLine("MeshFormat")
	if err != nil {
		return err
	}
	parts := strings.Fields(line)
	if len(parts) < 3 {
		return fmt.Errorf("%w: invalid MeshFormat line %q", mesh.ErrMalformedSection, line)
	}
	msh.FormatVersion = parts[0]
	fileType, _ := strconv.Atoi(parts[1])
	msh.IsBinary = fileType == 1
	msh.DataSize, _ = strconv.Atoi(parts[2])
	gs.binary = msh.IsBinary
	gs.dataSize = msh.DataSize
	if gs.binary {
		if gs.dataSize != 8 {
			return fmt.Errorf("%w: binary data size %d", mesh.ErrUnsupportedFormat, gs.dataSize)
		}
		var raw [4]byte
		if _, err = io.ReadFull(gs.r, raw[:]); err != nil {
			return fmt.Errorf("%w in MeshFormat endianness marker", mesh.ErrUnexpectedEOF)
		}
		switch {
		case binary.LittleEndian.Uint32(raw[:]) == 1:
			gs.byteOrder = binary.LittleEndian
		case binary.BigEndian.Uint32(raw[:]) == 1:
			gs.byteOrder = binary.BigEndian
		default:
			return fmt.Errorf("%w: bad endianness marker", mesh.ErrMalformedSection)
		}
	}
	return gs.skipTo("$EndMeshFormat")
}

func (gs *gmshStream) readInt32s(dst []int) error {
	buf := make([]int32, len(dst))
	if err := binary.Read(gs.r, gs.byteOrder, buf); err != nil {
		return fmt.Errorf("%w: %v", mesh.ErrUnexpectedEOF, err)
	}
	for i, v := range buf {
		dst[i] = int(v)
	}
	return nil
}

func (gs *gmshStream) readFloat64s(dst []float64) error {
	if err := binary.Read(gs.r, gs.byteOrder, dst); err != nil {
		return fmt.Errorf("%w: %v", mesh.ErrUnexpectedEOF, err)
	}
	return nil
}

// skipTo consumes lines up to and including the end marker
func (gs *gmshStream) skipTo(endMarker string) error {
	for {
		line, err := gs.readLine()
		if err == io.EOF {
			return fmt.Errorf("%w: missing %s", mesh.ErrUnexpectedEOF, endMarker)
		}
		if err != nil {
			return err
		}
		if line == endMarker {
			return nil
		}
	}
}

// readPhysicalNames reads physical group names (common to v2.2 and v4)
func (gs *gmshStream) readPhysicalNames(msh *mesh.Mesh) error {
	numNames, err := gs.readCount("PhysicalNames")
	if err != nil {
		return err
	}
	for i := 0; i < numNames; i++ {
		line, err := gs.mustLine("PhysicalNames")
		if err != nil {
			return err
		}
		parts := strings.Fields(line)
		if len(parts) < 3 {
			return fmt.Errorf("%w: physical name line %q", mesh.ErrMalformedSection, line)
		}
		dimension, _ := strconv.Atoi(parts[0])
		tag, _ := strconv.Atoi(parts[1])
		name := strings.Trim(strings.Join(parts[2:], " "), "\"")
		msh.ElementGroups[tag] = &mesh.ElementGroup{
			Dimension: dimension,
			Tag:       tag,
			Name:      name,
			Elements:  []int{},
		}
	}
	return gs.skipTo("$EndPhysicalNames")
}

// dataBlock is one $NodeData or $ElementData section, keyed by file ids
type dataBlock struct {
	name          string
	numComponents int
	ids           []int
	values        []float64
}

// readDataSection reads $NodeData / $ElementData, identical in v2.2 and v4.1
func (gs *gmshStream) readDataSection(section string) (db *dataBlock, err error) {
	db = &dataBlock{}
	var (
		nString, nReal, nInt int
		intTags              []int
		line                 string
	)
	if nString, err = gs.readCount(section); err != nil {
		return
	}
	for i := 0; i < nString; i++ {
		if line, err = gs.mustLine(section); err != nil {
			return
		}
		if i == 0 {
			db.name = strings.Trim(line, "\"")
		}
	}
	if nReal, err = gs.readCount(section); err != nil {
		return
	}
	for i := 0; i < nReal; i++ {
		if _, err = gs.mustLine(section); err != nil {
			return
		}
	}
	if nInt, err = gs.readCount(section); err != nil {
		return
	}
	for i := 0; i < nInt; i++ {
		var v int
		if v, err = gs.readCount(section); err != nil {
			return
		}
		intTags = append(intTags, v)
	}
	if len(intTags) < 3 {
		err = fmt.Errorf("%w: %s needs step, components and count tags", mesh.ErrMalformedSection, section)
		return
	}
	db.numComponents = intTags[1]
	numRows := intTags[2]
	db.ids = make([]int, numRows)
	db.values = make([]float64, numRows*db.numComponents)
	if gs.binary {
		id := make([]int, 1)
		for i := 0; i < numRows; i++ {
			if err = gs.readInt32s(id); err != nil {
				return
			}
			db.ids[i] = id[0]
			if err = gs.readFloat64s(db.values[i*db.numComponents : (i+1)*db.numComponents]); err != nil {
				return
			}
		}
	} else {
		for i := 0; i < numRows; i++ {
			if line, err = gs.mustLine(section); err != nil {
				return
			}
			fields := strings.Fields(line)
			if len(fields) < 1+db.numComponents {
				err = fmt.Errorf("%w: %s row %q", mesh.ErrMalformedSection, section, line)
				return
			}
			db.ids[i], _ = strconv.Atoi(fields[0])
			for c := 0; c < db.numComponents; c++ {
				if db.values[i*db.numComponents+c], err = parseFloat(fields[1+c]); err != nil {
					err = fmt.Errorf("%w: %s value %q", mesh.ErrMalformedSection, section, fields[1+c])
					return
				}
			}
		}
	}
	err = gs.skipTo("$End" + section)
	return
}

// attachPointData stores a node data block as point data, NaN where absent
func attachPointData(msh *mesh.Mesh, db *dataBlock) error {
	f := mesh.NewNaNField(db.name, msh.NumVertices, db.numComponents)
	for i, id := range db.ids {
		idx, ok := msh.GetNodeIndex(id)
		if !ok {
			return fmt.Errorf("%w: %q row for node %d", mesh.ErrUnknownNode, db.name, id)
		}
		f.SetRow(idx, db.values[i*db.numComponents:(i+1)*db.numComponents])
	}
	msh.PointData[db.name] = f
	return nil
}

// attachCellData stores an element data block as cell data; rows for
// boundary elements are dropped
func attachCellData(msh *mesh.Mesh, db *dataBlock) {
	var (
		cellIdx = msh.CellIndex()
		f       = mesh.NewNaNField(db.name, msh.NumElements, db.numComponents)
	)
	for i, id := range db.ids {
		if k, ok := cellIdx[id]; ok {
			f.SetRow(k, db.values[i*db.numComponents:(i+1)*db.numComponents])
		}
	}
	msh.CellData[db.name] = f
}

func parseFloat(s string) (float64, error) {
	switch strings.ToLower(s) {
	case "nan":
		return math.NaN(), nil
	case "inf", "+inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}
