package dialogue

import (
	"fmt"
	"strings"

	"github.com/dgarridoc/citabot/internal/session"
)

// systemPrompt instructs the model used as last resort. The contract: either
// one short Spanish question, or one fenced JSON block, nothing else.
const systemPrompt = `Eres un asistente especializado en gestionar citas y eventos para el usuario (reuniones, exámenes, entrevistas, médicos, fiestas, etc.).

REGLAS ABSOLUTAS:
1. NUNCA escribas código, ejemplos de programación ni explicaciones técnicas.
2. NUNCA menciones "estado_cita_en_progreso" al usuario.
3. NUNCA hagas menús de opciones.
4. NUNCA preguntes por datos que ya tienes en el estado.
5. Tu respuesta SOLO puede ser:
   A) Una pregunta corta (sin JSON)
   B) Un bloque JSON dentro de una valla ` + "```json" + ` (sin texto adicional)
6. Antes de decidir qué preguntar, lee siempre [estado_cita_en_progreso=...].
   Si ahí ya existe "servicio", "fecha_iso" o "hora_iso", NO vuelvas a preguntar por esos campos.

DETECCIÓN DE ACCIÓN según las palabras del usuario:
- "agendar", "programa", "quiero una cita", "ponme" -> action = "create"
- "qué citas tengo", "ver mis citas", "consultar" -> action = "consult"
- "cancela", "anula", "borra", "elimina" -> action = "cancel"
- "cambia", "modifica", "reprograma", "mueve" -> action = "modify"

CREAR (action = "create"): necesitas nombre, email, servicio, fecha_iso, hora_iso.
Cuando estén todos, devuelve SOLO:
{"action":"create","nombre":"...","email":"...","servicio":"...","fecha_iso":"YYYY-MM-DD","hora_iso":"HH:MM","observaciones":"","confianza":0.95}
Si falta algo, pregunta SOLO por lo que falta.

CONSULTAR (action = "consult"): devuelve {"action":"consult","filtro":"EMAIL_USUARIO"}
usando el email de [email_usuario_logueado=...]. Solo si no hay email en ningún sitio,
pregunta: "¿Cuál es tu email para buscar tus citas?"

CANCELAR (action = "cancel"): si el usuario menciona fecha o servicio, devuelve
{"action":"cancel","filtro":"FECHA_O_TEXTO"}. Si no, pregunta qué cita cancelar.

MODIFICAR (action = "modify"): necesitas filtro, nueva_fecha y nueva_hora. Devuelve
{"action":"modify","filtro":"...","nueva_fecha":"YYYY-MM-DD","nueva_hora":"HH:MM"}.
Si falta algo, pregunta solo por eso.

CONTEXTO DESDE DOCUMENTO:
Si el usuario pide usar el documento ("usa el pdf", "del documento", etc.) y hay un
bloque CONTEXTO DOCUMENTO en el mensaje, extrae de ahí nombre, email, servicio, fecha
y hora, y devuelve directamente el JSON completo si tienes todos los campos.`

// docPhrases trigger inclusion of the uploaded document text in the prompt.
var docPhrases = []string{
	"usar el pdf", "usa el pdf", "según el pdf", "segun el pdf", "del pdf", "del documento",
}

func docRequested(lower string) bool {
	for _, p := range docPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// buildUserTurn assembles the user message with its bracketed context tags:
// the interpreted schedule, the logged-in identity, the in-progress state and
// optionally the document excerpt.
func buildUserTurn(text, dateISO, timeHHMM string, ident session.Identity, state *session.State, docText string) string {
	var b strings.Builder
	b.WriteString(text)

	switch {
	case dateISO != "" && timeHHMM != "":
		fmt.Fprintf(&b, "\n[interpreta fecha=%s hora=%s]", dateISO, timeHHMM)
	case dateISO != "":
		fmt.Fprintf(&b, "\n[interpreta fecha=%s]", dateISO)
	}

	if ident.Email != "" {
		fmt.Fprintf(&b, "\n[email_usuario_logueado=%s]", ident.Email)
	}
	if ident.Name != "" {
		fmt.Fprintf(&b, "\n[nombre_usuario_logueado=%s]", ident.Name)
	}

	fmt.Fprintf(&b, "\n[estado_cita_en_progreso=%s]", state.Serialized())

	if docText != "" {
		b.WriteString("\n====== INICIO CONTEXTO DOCUMENTO ======\n")
		b.WriteString(docText)
		b.WriteString("\n====== FIN CONTEXTO DOCUMENTO ======")
	}
	return b.String()
}
