package yolo

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"aerialdetect/internal/model"
)

// cocoNames are the 80 COCO classes pretrained ultralytics models ship with.
var cocoNames = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck",
	"boat", "traffic light", "fire hydrant", "stop sign", "parking meter", "bench",
	"bird", "cat", "dog", "horse", "sheep", "cow", "elephant", "bear", "zebra",
	"giraffe", "backpack", "umbrella", "handbag", "tie", "suitcase", "frisbee",
	"skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup",
	"fork", "knife", "spoon", "bowl", "banana", "apple", "sandwich", "orange",
	"broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair", "couch",
	"potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear", "hair drier",
	"toothbrush",
}

// COCONames returns a fresh copy of the COCO class map.
func COCONames() model.ClassNameMap {
	names := make(model.ClassNameMap, len(cocoNames))
	for i, n := range cocoNames {
		names[i] = n
	}
	return names
}

// LoadClassNames reads an ultralytics dataset file. The names key may be a
// list ("names: [car, van]") or a map ("names: {0: car, 1: van}").
func LoadClassNames(path string) (model.ClassNameMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseClassNames(data)
}

// ParseClassNames is LoadClassNames on an in-memory document.
func ParseClassNames(data []byte) (model.ClassNameMap, error) {
	var doc struct {
		Names yaml.Node `yaml:"names"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse class names: %w", err)
	}

	names := model.ClassNameMap{}
	switch doc.Names.Kind {
	case yaml.SequenceNode:
		for i, n := range doc.Names.Content {
			names[i] = n.Value
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(doc.Names.Content); i += 2 {
			key, value := doc.Names.Content[i], doc.Names.Content[i+1]
			id, err := strconv.Atoi(key.Value)
			if err != nil {
				return nil, fmt.Errorf("class id %q on line %d is not an integer", key.Value, key.Line)
			}
			names[id] = value.Value
		}
	case 0:
		return nil, fmt.Errorf("no names key found")
	default:
		return nil, fmt.Errorf("names on line %d must be a list or a map", doc.Names.Line)
	}

	return names, nil
}
