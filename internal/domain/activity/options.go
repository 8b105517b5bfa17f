package activity

// ListActivityOptions provides filtering options for listing activity.
type ListActivityOptions struct {
	TableID      string
	RowIndex     *int
	ActivityType *ActivityType
	Limit        int
	Offset       int
}
