package internaltypes

import (
	"fmt"

	k8sResource "k8s.io/apimachinery/pkg/api/resource"
)

// Resource is a single dimension of a ResourceList, as returned by ResourceList.GetResources().
type Resource struct {
	Name     string
	RawValue int64
	Value    k8sResource.Quantity
	Scale    k8sResource.Scale
}

func (r Resource) String() string {
	return fmt.Sprintf("%s=%s", r.Name, r.Value.String())
}

// QuantityToInt64RoundUp returns ceil(q / 10^scale).
// Quantity.ScaledValue rounds away from zero, which is only a ceiling for non-negative quantities.
func QuantityToInt64RoundUp(q k8sResource.Quantity, scale k8sResource.Scale) int64 {
	v := q.ScaledValue(scale)
	if k8sResource.NewScaledQuantity(v, scale).Cmp(q) < 0 {
		v++
	}
	return v
}

// QuantityToInt64RoundDown returns floor(q / 10^scale).
func QuantityToInt64RoundDown(q k8sResource.Quantity, scale k8sResource.Scale) int64 {
	v := q.ScaledValue(scale)
	if k8sResource.NewScaledQuantity(v, scale).Cmp(q) > 0 {
		v--
	}
	return v
}
