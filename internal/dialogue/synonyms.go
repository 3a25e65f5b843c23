package dialogue

import (
	"regexp"
	"strings"
)

// serviceSynonyms maps informal Spanish mentions to the canonical service
// name. Order matters: more specific entries come first so "médico de
// cabecera" is not swallowed by "médico".
var serviceSynonyms = []struct {
	canonical string
	patterns  []string
}{
	{"médico de cabecera", []string{"médico de cabecera", "medico de cabecera", "cabecera"}},
	{"médico", []string{"médico", "medico", "doctor"}},
	{"dermatología", []string{"dermatólogo", "dermatologia", "dermatologo", "dermatología"}},
	{"cardiología", []string{"cardiólogo", "cardiologia", "cardiologo", "cardiología"}},
	{"fisioterapia", []string{"fisioterapia", "fisioterapeuta"}},
	{"ginecología", []string{"ginecología", "ginecologo", "ginecologia"}},
	{"traumatología", []string{"traumatología", "traumatologo", "traumatologia", "trauma"}},
	{"pediatría", []string{"pediatría", "pediatra", "pediatria"}},
	{"reunión", []string{"reunión", "reunion", "junta"}},
	{"entrevista", []string{"entrevista"}},
	{"examen", []string{"examen", "prueba", "test"}},
	{"fiesta", []string{"fiesta", "celebración", "celebracion"}},
	{"mecánico", []string{"mecanico", "mecánico", "taller"}},
}

// servicePhraseRE catches "cita de X", "reunión con X", "evento para X" when
// no synonym matched. The captured phrase ends at a schedule word.
var servicePhraseRE = regexp.MustCompile(`(?:cita|reunion|reunión|evento)\s+(?:de|con|para)\s+([a-záéíóúñ\s]+?)(?:\s+para|\s+el|\s+mañana|$)`)

// DetectService extracts the service mentioned in the utterance, normalized
// to its canonical name. Returns "" when nothing matches.
func DetectService(text string) string {
	lower := strings.ToLower(text)
	for _, entry := range serviceSynonyms {
		for _, p := range entry.patterns {
			if strings.Contains(lower, p) {
				return entry.canonical
			}
		}
	}
	if m := servicePhraseRE.FindStringSubmatch(lower); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
