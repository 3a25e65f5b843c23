package notify

import (
	"fmt"
	"strings"

	"github.com/dgarridoc/citabot/internal/appointments"
)

// ConfirmationEmail builds the booking confirmation sent to the requester.
// All user-facing text is Spanish.
func ConfirmationEmail(a *appointments.Appointment) EmailMessage {
	var body strings.Builder
	fmt.Fprintf(&body, "Hola %s,\n\n", a.RequesterName)
	fmt.Fprintf(&body, "Tu cita de %s ha quedado confirmada para el %s a las %s.\n", a.Service, a.Date, a.Time)
	if a.Notes != "" {
		fmt.Fprintf(&body, "\nObservaciones: %s\n", a.Notes)
	}
	body.WriteString("\nSi necesitas cambiarla o cancelarla, responde a este correo o escribe al asistente.\n\nUn saludo,\nCitaBot")

	return EmailMessage{
		To:      a.RequesterEmail,
		ToName:  a.RequesterName,
		Subject: fmt.Sprintf("Confirmación de cita: %s el %s a las %s", a.Service, a.Date, a.Time),
		Body:    body.String(),
	}
}
