package internaltypes

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	k8sResource "k8s.io/apimachinery/pkg/api/resource"

	"github.com/armadaproject/firstfit/internal/common/armadaerrors"
	"github.com/armadaproject/firstfit/internal/scheduler/configuration"
)

// ResourceListFactory owns a fixed set of resource dimensions.
// All ResourceLists created by the same factory share its dimensions and can be compared with each other.
type ResourceListFactory struct {
	nameToIndex map[string]int
	indexToName []string
	scales      []k8sResource.Scale
}

func MakeResourceListFactory(supportedResourceTypes []configuration.ResourceType) (*ResourceListFactory, error) {
	if len(supportedResourceTypes) == 0 {
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "supportedResourceTypes",
			Value:   supportedResourceTypes,
			Message: "no resource types configured",
		})
	}
	indexToName := make([]string, len(supportedResourceTypes))
	nameToIndex := make(map[string]int, len(supportedResourceTypes))
	scales := make([]k8sResource.Scale, len(supportedResourceTypes))
	for i, t := range supportedResourceTypes {
		if t.Name == "" {
			return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    "supportedResourceTypes",
				Value:   t.Name,
				Message: "resource type name must not be empty",
			})
		}
		if _, exists := nameToIndex[t.Name]; exists {
			return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    "supportedResourceTypes",
				Value:   t.Name,
				Message: "duplicate resource type name",
			})
		}
		nameToIndex[t.Name] = i
		indexToName[i] = t.Name
		scales[i] = resolutionToScale(t.Resolution)
	}
	return &ResourceListFactory{
		indexToName: indexToName,
		nameToIndex: nameToIndex,
		scales:      scales,
	}, nil
}

// MakeResourceListFactoryFromCapacity returns a factory whose dimensions are exactly the names in capacity,
// sorted, each with milli resolution.
func MakeResourceListFactoryFromCapacity(capacity map[string]k8sResource.Quantity) (*ResourceListFactory, error) {
	names := maps.Keys(capacity)
	slices.Sort(names)
	types := make([]configuration.ResourceType, len(names))
	for i, name := range names {
		types[i] = configuration.ResourceType{Name: name}
	}
	return MakeResourceListFactory(types)
}

// Convert resolution to a k8sResource.Scale
// e.g.
// 1     ->  0
// 0.001 -> -3
// 1000  ->  3
func resolutionToScale(resolution k8sResource.Quantity) k8sResource.Scale {
	if resolution.Sign() < 1 {
		return k8sResource.Milli
	}
	return k8sResource.Scale(math.Floor(math.Log10(resolution.AsApproximateFloat64())))
}

func (factory *ResourceListFactory) MakeAllZero() ResourceList {
	result := make([]int64, len(factory.indexToName))
	return ResourceList{resources: result, factory: factory}
}

// FromCapacity converts capacity into a ResourceList.
// Unknown resources are ignored and values are rounded down, so that capacity is never overstated.
// Negative capacities are rejected.
func (factory *ResourceListFactory) FromCapacity(capacity map[string]k8sResource.Quantity) (ResourceList, error) {
	result := make([]int64, len(factory.indexToName))
	for k, v := range capacity {
		index, ok := factory.nameToIndex[k]
		if !ok {
			continue
		}
		if v.Sign() < 0 {
			return ResourceList{}, errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    "available",
				Value:   fmt.Sprintf("%s=%s", k, v.String()),
				Message: "available resources must not be negative",
			})
		}
		result[index] = QuantityToInt64RoundDown(v, factory.scales[index])
	}
	return ResourceList{resources: result, factory: factory}, nil
}

// FromJobResourceListIgnoreUnknown converts a job requirement into a ResourceList, projecting it onto the
// dimensions of the factory. Resources unknown to the factory are ignored and values are rounded up.
func (factory *ResourceListFactory) FromJobResourceListIgnoreUnknown(resources map[string]k8sResource.Quantity) ResourceList {
	result := make([]int64, len(factory.indexToName))
	for k, v := range resources {
		index, ok := factory.nameToIndex[k]
		if ok {
			result[index] = QuantityToInt64RoundUp(v, factory.scales[index])
		}
	}
	return ResourceList{resources: result, factory: factory}
}

// FromJobResourceListFailOnUnknown converts a job requirement into a ResourceList.
// Values are rounded up, so that requirements are never understated.
// Resources missing from the requirement are zero; resources unknown to the factory are an error.
func (factory *ResourceListFactory) FromJobResourceListFailOnUnknown(resources map[string]k8sResource.Quantity) (ResourceList, error) {
	result := make([]int64, len(factory.indexToName))
	for k, v := range resources {
		index, ok := factory.nameToIndex[k]
		if !ok {
			return ResourceList{}, errors.Errorf("resource type %q is not supported (supported resource types are %s)", k, factory.indexToName)
		}
		result[index] = QuantityToInt64RoundUp(v, factory.scales[index])
	}
	return ResourceList{resources: result, factory: factory}, nil
}

// FromRawValues builds a ResourceList from already-scaled values, keyed by resource name.
// Unknown resources are an error.
func (factory *ResourceListFactory) FromRawValues(values map[string]int64) (ResourceList, error) {
	result := make([]int64, len(factory.indexToName))
	for k, v := range values {
		index, ok := factory.nameToIndex[k]
		if !ok {
			return ResourceList{}, errors.Errorf("resource type %q is not supported (supported resource types are %s)", k, factory.indexToName)
		}
		result[index] = v
	}
	return ResourceList{resources: result, factory: factory}, nil
}

func (factory *ResourceListFactory) ResourceNames() []string {
	return slices.Clone(factory.indexToName)
}

func (factory *ResourceListFactory) SummaryString() string {
	result := ""
	for i, name := range factory.indexToName {
		if i > 0 {
			result += " "
		}
		scale := factory.scales[i]
		resolution := k8sResource.NewScaledQuantity(1, scale)
		maxValue := k8sResource.NewScaledQuantity(math.MaxInt64, scale)
		result += fmt.Sprintf("%s (scale %v, resolution %v, maxValue %f)", name, scale, resolution, maxValue.AsApproximateFloat64())
	}
	return result
}

func (factory *ResourceListFactory) GetScale(resourceTypeName string) (k8sResource.Scale, error) {
	index, ok := factory.nameToIndex[resourceTypeName]
	if !ok {
		return 0, errors.Errorf("unknown resource type %q", resourceTypeName)
	}
	return factory.scales[index], nil
}
