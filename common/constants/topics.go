package constants

const (
	// AppointmentFoundSubjectPrefix is followed by the user id.
	AppointmentFoundSubjectPrefix = "cita.appointment.found"
	// AppointmentFoundSubjects is the stream filter covering every user.
	AppointmentFoundSubjects = AppointmentFoundSubjectPrefix + ".>"

	// NotificationTypeAppointmentAvailable is the notification type consumers dispatch on.
	NotificationTypeAppointmentAvailable = "APPOINTMENT_AVAILABLE"
)
