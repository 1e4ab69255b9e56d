package aggregate

// User-facing notices shared by the report and the HTTP API.
const (
	NoticeNoData    = "A consulta não retornou dados."
	NoticeNoMatch   = "Nenhum registro encontrado para a combinação de filtros selecionada."
	NoticeNoGeoData = "Não há dados geográficos para exibir."
)

// EmptyNotice returns the notice for an empty view: NoticeNoData when the
// source itself is empty, NoticeNoMatch when the filters removed everything.
// It returns "" when filtered is not empty.
func EmptyNotice(total, filtered int) string {
	switch {
	case total == 0:
		return NoticeNoData
	case filtered == 0:
		return NoticeNoMatch
	}
	return ""
}
