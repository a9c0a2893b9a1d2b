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

// EntityInfo stores the physical tags of a geometric entity
type EntityInfo struct {
	Dimension    int
	Tag          int
	PhysicalTags []int
}

type entityKey struct{ dim, tag int }

// ReadGmsh4 reads an ASCII Gmsh MSH file format version 4.x
func ReadGmsh4(filename string) (*mesh.Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var (
		gs        = newGmshStream(file)
		msh       = mesh.NewMesh()
		entities  = make(map[entityKey]*EntityInfo)
		pointData []*dataBlock
		cellData  []*dataBlock
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
			if msh.IsBinary {
				return nil, fmt.Errorf("%w: binary MSH %s", mesh.ErrUnsupportedFormat, msh.FormatVersion)
			}

		case "$PhysicalNames":
			if err = gs.readPhysicalNames(msh); err != nil {
				return nil, err
			}

		case "$Entities":
			if err = readEntities4(gs, entities); err != nil {
				return nil, err
			}

		case "$Nodes":
			if err = readNodes4(gs, msh); err != nil {
				return nil, err
			}

		case "$Elements":
			if err = readElements4(gs, msh, entities); err != nil {
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

// readEntities4 reads the Entities section, keeping only physical tags
//
// Points:  tag x y z numPhysicalTags physicalTag ...
// Others:  tag minX minY minZ maxX maxY maxZ numPhysicalTags physicalTag ... numBounding ...
func readEntities4(gs *gmshStream, entities map[entityKey]*EntityInfo) error {
	line, err := gs.mustLine("Entities")
	if err != nil {
		return err
	}
	counts := strings.Fields(line)
	if len(counts) < 4 {
		return fmt.Errorf("%w: entity counts %q", mesh.ErrMalformedSection, line)
	}
	for dim := 0; dim < 4; dim++ {
		num, _ := strconv.Atoi(counts[dim])
		physPos := 7
		if dim == 0 {
			physPos = 4
		}
		for i := 0; i < num; i++ {
			if line, err = gs.mustLine("Entities"); err != nil {
				return err
			}
			fields := strings.Fields(line)
			if len(fields) < physPos+1 {
				return fmt.Errorf("%w: dimension %d entity %q", mesh.ErrMalformedSection, dim, line)
			}
			tag, _ := strconv.Atoi(fields[0])
			numPhys, _ := strconv.Atoi(fields[physPos])
			entity := &EntityInfo{Dimension: dim, Tag: tag, PhysicalTags: make([]int, 0, numPhys)}
			for j := 0; j < numPhys && physPos+1+j < len(fields); j++ {
				pt, _ := strconv.Atoi(fields[physPos+1+j])
				entity.PhysicalTags = append(entity.PhysicalTags, pt)
			}
			entities[entityKey{dim, tag}] = entity
		}
	}
	return gs.skipTo("$EndEntities")
}

// readNodes4 reads nodes in v4 format: per entity block, node tags one per
// line followed by coordinates one per line
func readNodes4(gs *gmshStream, msh *mesh.Mesh) error {
	line, err := gs.mustLine("Nodes")
	if err != nil {
		return err
	}
	// Format: numEntityBlocks numNodes minNodeTag maxNodeTag
	header := strings.Fields(line)
	if len(header) < 4 {
		return fmt.Errorf("%w: Nodes header %q", mesh.ErrMalformedSection, line)
	}
	numEntityBlocks, _ := strconv.Atoi(header[0])
	coords := make([]float64, 3)
	for i := 0; i < numEntityBlocks; i++ {
		// entityDim entityTag parametric numNodes
		if line, err = gs.mustLine("Nodes"); err != nil {
			return err
		}
		blockHeader := strings.Fields(line)
		if len(blockHeader) < 4 {
			return fmt.Errorf("%w: node block header %q", mesh.ErrMalformedSection, line)
		}
		numNodesInBlock, _ := strconv.Atoi(blockHeader[3])
		nodeTags := make([]int, numNodesInBlock)
		for j := range nodeTags {
			if nodeTags[j], err = gs.readCount("Nodes"); err != nil {
				return err
			}
		}
		for j := 0; j < numNodesInBlock; j++ {
			if line, err = gs.mustLine("Nodes"); err != nil {
				return err
			}
			fields := strings.Fields(line)
			if len(fields) < 3 {
				return fmt.Errorf("%w: node coordinate line %q", mesh.ErrMalformedSection, line)
			}
			for k := 0; k < 3; k++ {
				if coords[k], err = strconv.ParseFloat(fields[k], 64); err != nil {
					return fmt.Errorf("%w: coordinate %q", mesh.ErrMalformedSection, fields[k])
				}
			}
			msh.AddNode(nodeTags[j], coords)
		}
	}
	return gs.skipTo("$EndNodes")
}

// readElements4 reads elements in v4 format
func readElements4(gs *gmshStream, msh *mesh.Mesh, entities map[entityKey]*EntityInfo) error {
	line, err := gs.mustLine("Elements")
	if err != nil {
		return err
	}
	// Format: numEntityBlocks numElements minElementTag maxElementTag
	header := strings.Fields(line)
	if len(header) < 4 {
		return fmt.Errorf("%w: Elements header %q", mesh.ErrMalformedSection, line)
	}
	numEntityBlocks, _ := strconv.Atoi(header[0])
	for i := 0; i < numEntityBlocks; i++ {
		// entityDim entityTag elementType numElements
		if line, err = gs.mustLine("Elements"); err != nil {
			return err
		}
		blockHeader := strings.Fields(line)
		if len(blockHeader) < 4 {
			return fmt.Errorf("%w: element block header %q", mesh.ErrMalformedSection, line)
		}
		entityDim, _ := strconv.Atoi(blockHeader[0])
		entityTag, _ := strconv.Atoi(blockHeader[1])
		gmshType, _ := strconv.Atoi(blockHeader[2])
		numElemsInBlock, _ := strconv.Atoi(blockHeader[3])

		elemType, known := utils.GmshElementTypes[gmshType]
		// Physical tag first, geometric entity tag second, as in v2.2
		var tags []int
		if entity, ok := entities[entityKey{entityDim, entityTag}]; ok && len(entity.PhysicalTags) > 0 {
			tags = append(tags, entity.PhysicalTags[0])
		} else {
			tags = append(tags, 0)
		}
		tags = append(tags, entityTag)

		for j := 0; j < numElemsInBlock; j++ {
			if line, err = gs.mustLine("Elements"); err != nil {
				return err
			}
			if !known {
				continue
			}
			fields := strings.Fields(line)
			expectedNodes := elemType.GetNumNodes()
			if len(fields) < 1+expectedNodes {
				return fmt.Errorf("%w: expected %d fields in element line %q",
					mesh.ErrMalformedSection, 1+expectedNodes, line)
			}
			elemTag, _ := strconv.Atoi(fields[0])
			nodeIDs := make([]int, expectedNodes)
			for k := range nodeIDs {
				nodeIDs[k], _ = strconv.Atoi(fields[1+k])
			}
			if err = msh.AddElement(elemTag, elemType, tags, nodeIDs); err != nil {
				return err
			}
		}
	}
	return gs.skipTo("$EndElements")
}
