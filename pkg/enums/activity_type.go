package enums

// ActivityType tags an order activity log entry. The set is open; these are
// the tags written by the API itself.
type ActivityType string

const (
	ActivityOrderCreated           ActivityType = "order_created"
	ActivityOrderUpdated           ActivityType = "order_updated"
	ActivityStatusUpdated          ActivityType = "status_updated"
	ActivityShipmentCreated        ActivityType = "shipment_created"
	ActivityShipmentCreationFailed ActivityType = "shipment_creation_failed"
	ActivityShipmentStatusUpdated  ActivityType = "shipment_status_updated"
	ActivityOrderDeleted           ActivityType = "order_deleted"
	ActivityOrderRestored          ActivityType = "order_restored"
	ActivityOrderVerified          ActivityType = "order_verified"
	ActivityReadyForAssignment     ActivityType = "ready_for_assignment"
	ActivityAssignedToPicker       ActivityType = "assigned_to_picker"
)

// String implements fmt.Stringer.
func (a ActivityType) String() string {
	return string(a)
}
