// ABOUTME: Wire types for the schedule service's resource endpoints
// ABOUTME: Dates travel as ISO strings; the client does not reinterpret them

package api

// TrainType is a category of rolling stock.
type TrainType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Train is the rolling stock assigned to a schedule.
type Train struct {
	ID          string     `json:"id"`
	TrainTitle  string     `json:"trainTitle"`
	TrainTypeID string     `json:"trainTypeId"`
	TrainType   *TrainType `json:"trainType,omitempty"`
}

// Schedule is one timetabled journey.
type Schedule struct {
	ID            string   `json:"id"`
	TrainID       string   `json:"trainId"`
	RouteName     string   `json:"routeName"`
	DepartureDate string   `json:"departureDate"`
	FinishedDate  string   `json:"finishedDate"`
	Stops         []string `json:"stops"`
	Train         *Train   `json:"train,omitempty"`
}

// CreateScheduleInput is the payload for creating a schedule.
type CreateScheduleInput struct {
	TrainID       string   `json:"trainId"`
	RouteName     string   `json:"routeName"`
	DepartureDate string   `json:"departureDate"`
	FinishedDate  string   `json:"finishedDate"`
	Stops         []string `json:"stops"`
}

// UpdateScheduleInput is the partial payload for updating a schedule.
// Zero fields are omitted from the patch.
type UpdateScheduleInput struct {
	TrainID       string   `json:"trainId,omitempty"`
	RouteName     string   `json:"routeName,omitempty"`
	DepartureDate string   `json:"departureDate,omitempty"`
	FinishedDate  string   `json:"finishedDate,omitempty"`
	Stops         []string `json:"stops,omitempty"`
}

// ScheduleFilter narrows a schedule listing. Zero fields are not sent.
type ScheduleFilter struct {
	DateFrom    string
	DateTo      string
	RouteName   string
	TrainTypeID string
}

// Favorite marks a schedule as pinned by the current user.
type Favorite struct {
	ID         string    `json:"id"`
	ScheduleID string    `json:"scheduleId"`
	Schedule   *Schedule `json:"schedule,omitempty"`
	CreatedAt  string    `json:"createdAt,omitempty"`
}
