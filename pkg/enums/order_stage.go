package enums

import (
	"fmt"
	"strings"
)

// OrderStage is a step of the pick/pack board. Each stage resolves to a
// lifecycle status and the activity tag recorded when an order enters it.
type OrderStage string

const (
	OrderStageVerify  OrderStage = "verify"
	OrderStageAssign  OrderStage = "assign"
	OrderStageFulfill OrderStage = "fulfill"
)

type stageTarget struct {
	status   OrderStatus
	activity ActivityType
}

var stageTargets = map[OrderStage]stageTarget{
	OrderStageVerify:  {status: OrderStatusProcessed, activity: ActivityOrderVerified},
	OrderStageAssign:  {status: OrderStatusProcessed, activity: ActivityReadyForAssignment},
	OrderStageFulfill: {status: OrderStatusInProcess, activity: ActivityAssignedToPicker},
}

// String implements fmt.Stringer.
func (s OrderStage) String() string {
	return string(s)
}

// IsValid reports whether the stage is recognized.
func (s OrderStage) IsValid() bool {
	_, ok := stageTargets[s]
	return ok
}

// Target returns the status and activity tag for the stage.
func (s OrderStage) Target() (OrderStatus, ActivityType) {
	t := stageTargets[s]
	return t.status, t.activity
}

// ParseOrderStage converts raw input into an OrderStage.
func ParseOrderStage(value string) (OrderStage, error) {
	stage := OrderStage(strings.ToLower(strings.TrimSpace(value)))
	if !stage.IsValid() {
		return "", fmt.Errorf("invalid order stage %q", value)
	}
	return stage, nil
}
