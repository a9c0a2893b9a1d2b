package readers

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/injectionflow/platedist/mesh"
	"github.com/injectionflow/platedist/utils"
)

// ReadGmsh22 reads a Gmsh MSH file format version 2.2, ASCII or binary
func ReadGmsh22(filename string) (*mesh.Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return readGmsh22(newGmshStream(file))
}

func readGmsh22(gs *gmshStream) (*mesh.Mesh, error) {
	var (
		msh       = mesh.NewMesh()
		cellData  []*dataBlock
		pointData []*dataBlock
	)
	for {
		line, err := gs.readLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == "" {
			continue
		}

		switch line {
		case "$MeshFormat":
			if err = gs.readMeshFormat(msh); err != nil {
				return nil, err
			}

		case "$PhysicalNames":
			if err = gs.readPhysicalNames(msh); err != nil {
				return nil, err
			}

		case "$Nodes":
			if err = readNodes22(gs, msh); err != nil {
				return nil, err
			}

		case "$Elements":
			if err = readElements22(gs, msh); err != nil {
				return nil, err
			}

		case "$NodeData":
			db, err := gs.readDataSection("NodeData")
			if err != nil {
				return nil, err
			}
			pointData = append(pointData, db)

		case "$ElementData":
			db, err := gs.readDataSection("ElementData")
			if err != nil {
				return nil, err
			}
			cellData = append(cellData, db)

		default:
			if strings.HasPrefix(line, "$") && !strings.HasPrefix(line, "$End") {
				// $Periodic, $ElementNodeData, $InterpolationScheme ...
				if err = gs.skipTo("$End" + line[1:]); err != nil {
					return nil, err
				}
			}
		}
	}

	msh.Finalize()
	for _, db := range pointData {
		if err := attachPointData(msh, db); err != nil {
			return nil, err
		}
	}
	for _, db := range cellData {
		attachCellData(msh, db)
	}
	return msh, nil
}

// readNodes22 reads the Nodes section: count, then "id x y z" records
func readNodes22(gs *gmshStream, msh *mesh.Mesh) error {
	numNodes, err := gs.readCount("Nodes")
	if err != nil {
		return err
	}
	coords := make([]float64, 3)
	if gs.binary {
		id := make([]int, 1)
		for i := 0; i < numNodes; i++ {
			if err = gs.readInt32s(id); err != nil {
				return err
			}
			if err = gs.readFloat64s(coords); err != nil {
				return err
			}
			msh.AddNode(id[0], coords)
		}
		return gs.skipTo("$EndNodes")
	}
	for i := 0; i < numNodes; i++ {
		line, err := gs.mustLine("Nodes")
		if err != nil {
			return err
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return fmt.Errorf("%w: node line %q", mesh.ErrMalformedSection, line)
		}
		nodeID, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("%w: node id %q", mesh.ErrMalformedSection, fields[0])
		}
		for k := 0; k < 3; k++ {
			if coords[k], err = strconv.ParseFloat(fields[1+k], 64); err != nil {
				return fmt.Errorf("%w: node %d coordinate %q", mesh.ErrMalformedSection, nodeID, fields[1+k])
			}
		}
		msh.AddNode(nodeID, coords)
	}
	return gs.skipTo("$EndNodes")
}

// readElements22 reads the Elements section
//
// ASCII: elm-number elm-type number-of-tags <tags> node-number-list
// Binary: blocks of header(elm-type, num-elm-follow, num-tags) followed by
// num-elm-follow records of (number, tags..., nodes...)
func readElements22(gs *gmshStream, msh *mesh.Mesh) error {
	numElements, err := gs.readCount("Elements")
	if err != nil {
		return err
	}
	if gs.binary {
		header := make([]int, 3)
		for read := 0; read < numElements; {
			if err = gs.readInt32s(header); err != nil {
				return err
			}
			gmshType, numFollow, numTags := header[0], header[1], header[2]
			etype, ok := utils.GmshElementTypes[gmshType]
			if !ok {
				return fmt.Errorf("%w: Gmsh element type %d", mesh.ErrUnsupportedElement, gmshType)
			}
			nn := etype.GetNumNodes()
			rec := make([]int, 1+numTags+nn)
			for j := 0; j < numFollow; j++ {
				if err = gs.readInt32s(rec); err != nil {
					return err
				}
				if err = msh.AddElement(rec[0], etype, rec[1:1+numTags], rec[1+numTags:]); err != nil {
					return err
				}
			}
			read += numFollow
		}
		return gs.skipTo("$EndElements")
	}

	for i := 0; i < numElements; i++ {
		line, err := gs.mustLine("Elements")
		if err != nil {
			return err
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return fmt.Errorf("%w: element line %q", mesh.ErrMalformedSection, line)
		}
		vals := make([]int, len(fields))
		for k, f := range fields {
			if vals[k], err = strconv.Atoi(f); err != nil {
				return fmt.Errorf("%w: element field %q", mesh.ErrMalformedSection, f)
			}
		}
		elemID, gmshType, numTags := vals[0], vals[1], vals[2]
		etype, ok := utils.GmshElementTypes[gmshType]
		if !ok {
			// Unsupported higher order types are skipped
			continue
		}
		if len(vals) < 3+numTags {
			return fmt.Errorf("%w: element %d tags", mesh.ErrMalformedSection, elemID)
		}
		if err = msh.AddElement(elemID, etype, vals[3:3+numTags], vals[3+numTags:]); err != nil {
			return err
		}
	}
	return gs.skipTo("$EndElements")
}
