package qrng

import "fmt"

// Default service limits.
const (
	DefaultMaxUnitsPerRequest  = 1024
	DefaultMaxRequestsPerBatch = 500
)

// Plan returns the sizes of the requests needed to fetch total units.
// All requests but the last one are of maxPerRequest size. If more than
// maxRequests full requests would be needed, the plan is capped at
// maxRequests full requests and the caller must plan again for the rest.
// Invalid arguments are programming errors and panic.
func Plan(total, maxPerRequest, maxRequests int) []int {
	if total < 0 || maxPerRequest <= 0 || maxRequests <= 0 {
		panic(fmt.Sprintf(
			"qrng: invalid plan arguments: total=%d maxPerRequest=%d maxRequests=%d",
			total, maxPerRequest, maxRequests,
		))
	}
	if total == 0 {
		return []int{}
	}

	large := total / maxPerRequest
	remainder := total % maxPerRequest
	if large >= maxRequests {
		large = maxRequests
		remainder = 0
	}

	plan := make([]int, 0, large+1)
	for i := 0; i < large; i++ {
		plan = append(plan, maxPerRequest)
	}
	if remainder > 0 {
		plan = append(plan, remainder)
	}
	return plan
}

// PlanTotal returns the sum of all request sizes of a plan.
func PlanTotal(plan []int) (total int) {
	for _, size := range plan {
		total += size
	}
	return total
}
