package flow

// Fixed conversation texts. Everything the bot says that does not come from
// the AI gateway lives here.
const (
	textCategoryPrompt   = "Qual tipo de ocorrência você quer registrar?"
	textCategoryReprompt = "Não consegui identificar o tipo de ocorrência. Escolha uma das opções abaixo:"
	textDetailPrompt     = "Me conte mais detalhes sobre o que está acontecendo. Se tiver uma foto, pode enviar junto."
	textLocationPrompt   = "Para finalizar, preciso saber onde o problema está acontecendo. Como você prefere informar a localização?"
	textLocationByText   = "Certo! Me diga o bairro ou um ponto de referência."
	textGPSFailed        = "Não consegui obter sua localização pelo GPS. Tente novamente ou escolha outra forma de informar o local."
	textReportCreated    = "Ocorrência registrada com sucesso! Sua contribuição ajuda a Defesa Civil a agir mais rápido."
	textWhatNext         = "O que você quer fazer agora?"

	// User-side confirmations appended when an out-of-band control is used
	textUserGPS     = "Usar minha localização (GPS)"
	textUserMap     = "Vou marcar o local no mapa"
	textUserText    = "Vou descrever o local"
	textUserMapPick = "Local marcado no mapa"

	// Finalization defaults for fields that ended up empty
	defaultAnalysis    = "Sem análise disponível"
	defaultDescription = "Sem descrição adicional"

	// Neighborhood labels for the two non-geocoded location paths
	NeighborhoodGPS = "GPS location"
	NeighborhoodMap = "Marcado no mapa"
)
