package i18n

// General.
const (
	MsgInternalError   = "Something went wrong while running this command."
	MsgForbidden       = "You do not have permission to use this command."
	MsgUsage           = "Usage: %s"
	MsgRateLimited     = "Slow down, try again in a moment."
	MsgTimeout         = "The command took too long and was cancelled."
	MsgHelpHeader      = "Available Commands:"
	MsgHelpUnknown     = "There is no command called %s."
	MsgServerOnly      = "This command only works in a server."
	MsgUnsupported     = "This command is not supported on this platform."
	MsgErrorOccurred   = "An error occurred: %s"
	MsgStatus          = "This command only shows the bot's custom status."
	MsgPrefixUpdated   = `Prefix updated to "%s"`
	MsgPrefixInvalid   = "The prefix cannot be empty or contain spaces."
	MsgAvatarMissing   = "This user has no avatar."
	MsgInvalidUser     = "Invalid user."
	MsgNoAttachments   = "No attached image found."
	MsgAttachmentLinks = "Attached image links:"
)

// Health.
const (
	MsgHealthHeader   = "Bot health: %s"
	MsgHealthRunning  = "Running"
	MsgHealthDegraded = "Degraded"
	MsgHealthUptime   = "Uptime: %s"
	MsgHealthRuntime  = "Memory: %s | Goroutines: %s"
	MsgHealthPlugins  = "Plugins:"
	MsgHealthStopped  = "stopped"
)

// Card labels.
const (
	LabelDescription  = "Description"
	LabelAdvantage    = "Advantage"
	LabelDisadvantage = "Disadvantage"
	LabelImage        = "Image"
	LabelServer       = "Server"
)

// Powers.
const (
	MsgPowerAdded         = `Power "%s" added successfully!`
	MsgNoPowers           = "No powers available."
	MsgPowerList          = "Power List"
	MsgPowerDeleted       = `Power "%s" deleted successfully!`
	MsgPowerDeleteDenied  = `You do not own a power named "%s" or are not allowed to delete it.`
	MsgPowerNotFound      = `Power "%s" not found.`
	MsgPowerInvalidField  = "Invalid field. Valid fields are: description, advantage, disadvantage, image."
	MsgPowerFieldUpdated  = `%s of power "%s" updated successfully!`
	MsgPowerEditDenied    = `You do not own a power named "%s" or are not allowed to edit it.`
	MsgCharacterAdded     = "Character added successfully!"
	MsgCharacterDeleted   = "Character deleted successfully!"
	MsgCharacterNotFound  = "Character not found."
	MsgCharacterDenied    = "Character not found or you are not allowed to change it."
	MsgCharacterUpdated   = "Character updated successfully!"
	MsgCharacterBadField  = "Invalid field. Valid fields are: description, server, image."
	MsgNoCharacters       = "No characters available."
	MsgCharacterList      = "Character List"
	MsgInvalidImageURL    = "Invalid image URL. Make sure to provide a valid URL starting with http:// or https://."
	MsgRollCreated        = "Roll created successfully!"
	MsgRollDeleted        = "Roll deleted successfully!"
	MsgRollNotFound       = "Roll not found."
	MsgRollDenied         = "Roll not found or you are not allowed to delete it."
	MsgRollTaken          = "A roll with this name already exists and belongs to someone else."
	MsgNoRolls            = "No rolls in this server."
	MsgRollList           = "Rolls in this server:"
	MsgNoOptions          = "Provide at least one option."
	MsgDiceFormat         = "Invalid format. Use xdy where x is the number of dice and y is the number of sides."
	MsgDiceLimits         = "Please keep the number of dice between 1 and 1000 and the number of sides between 2 and 99999999."
	MsgDiceResults        = "Dice results %s: %s"
	MsgUserBanned         = "User %s was banned for %s."
	MsgBanFailed          = "Error banning %s: %s"
	MsgUserKicked         = "User %s was kicked for %s."
	MsgKickFailed         = "Error kicking %s: %s"
	MsgNoReason           = "no reason given"
	MsgRoutineBadTime     = "Invalid time format. Use HH:MM or HH:MM:SS."
	MsgRoutineBadChannel  = "Invalid channel."
	MsgRoutineSet         = "Routine set: %s in channel %s with the message:"
	MsgRoutineRemoved     = "Routine at %s in channel %s was removed successfully."
	MsgRoutineNotFound    = "No routine found for %s in channel %s."
	MsgNoRoutines         = "No routines defined at the moment."
	MsgRoutineListHeader  = "Defined Routines:"
	LabelRoutineTime      = "Time:"
	LabelRoutineChannel   = "Channel:"
	LabelRoutineMessage   = "Message:"
	MsgRoutineSavedMemory = "The routine is active but could not be saved: %s"
)

// Command descriptions shown by help.
const (
	HelpAddPower       = "Adds a new power (admins only)"
	HelpListPowers     = "Lists all powers"
	HelpDeletePower    = "Deletes a power"
	HelpGetPower       = "Shows the details of a power"
	HelpEditPower      = "Edits a field of a power"
	HelpEditPrefix     = "Changes the command prefix"
	HelpPRandom        = "Shows a random power"
	HelpPergunta       = "Answers a question with predefined answers"
	HelpAddCharacter   = "Adds a new character"
	HelpListCharacters = "Lists all characters"
	HelpDeleteChar     = "Deletes a character"
	HelpGetCharacter   = "Shows the details of a character"
	HelpEditCharacter  = "Edits a field of a character"
	HelpAvatar         = "Shows your avatar or the avatar of the given user"
	HelpRollCreate     = "Creates a new roll (admins only)"
	HelpRollDelete     = "Deletes a roll (admins only)"
	HelpRoll           = "Picks a random option from a roll"
	HelpRolls          = "Lists the rolls of this server"
	HelpChoose         = "Picks a random option from the given ones"
	HelpDado           = "Rolls x dice with y sides"
	HelpHumor          = "Shows the bot's mood towards you today"
	HelpConvertImage   = "Converts attached images to links"
	HelpBan            = "Bans a user from the server (requires ban permission)"
	HelpKick           = "Kicks a user from the server (requires kick permission)"
	HelpStatus         = "Shows the bot status"
	HelpRotina         = "Sets a daily routine at the given time"
	HelpListRotinas    = "Lists all routines"
	HelpDeleteRotina   = "Removes the routine at the given time"
	HelpHelp           = "Shows this list"
	HelpHealth         = "Shows uptime, memory and plugin state (owners only)"
	HelpPagerNav       = "Turns the page of a list"
)

var ptBR = map[string]string{
	MsgInternalError:   "Ocorreu um erro ao executar este comando.",
	MsgForbidden:       "Você não tem permissão para usar este comando.",
	MsgUsage:           "Uso: %s",
	MsgRateLimited:     "Calma, tente novamente em instantes.",
	MsgTimeout:         "O comando demorou demais e foi cancelado.",
	MsgHelpHeader:      "Comandos Disponíveis:",
	MsgHelpUnknown:     "Não existe um comando chamado %s.",
	MsgServerOnly:      "Este comando só funciona em um servidor.",
	MsgUnsupported:     "Este comando não é suportado nesta plataforma.",
	MsgErrorOccurred:   "Ocorreu um erro: %s",
	MsgStatus:          "Este comando é apenas para mostrar o status personalizado do bot.",
	MsgPrefixUpdated:   `Prefixo atualizado para "%s"`,
	MsgPrefixInvalid:   "O prefixo não pode ser vazio nem conter espaços.",
	MsgAvatarMissing:   "Este usuário não tem avatar.",
	MsgInvalidUser:     "Usuário inválido.",
	MsgNoAttachments:   "Nenhuma imagem anexada encontrada.",
	MsgAttachmentLinks: "Links das imagens anexadas:",

	LabelDescription:  "Descrição",
	LabelAdvantage:    "Vantagem",
	LabelDisadvantage: "Desvantagem",
	LabelImage:        "Imagem",
	LabelServer:       "Servidor",

	MsgPowerAdded:         `Poder "%s" adicionado com sucesso!`,
	MsgNoPowers:           "Não há poderes disponíveis no momento.",
	MsgPowerList:          "Lista de Poderes",
	MsgPowerDeleted:       `Poder "%s" excluído com sucesso!`,
	MsgPowerDeleteDenied:  `Você não possui um poder chamado "%s" ou não tem permissão para excluí-lo.`,
	MsgPowerNotFound:      `Poder "%s" não encontrado.`,
	MsgPowerInvalidField:  "Campo inválido. Campos válidos são: description, advantage, disadvantage, image.",
	MsgPowerFieldUpdated:  `%s do poder "%s" atualizada com sucesso!`,
	MsgPowerEditDenied:    `Você não possui um poder chamado "%s" ou não tem permissão para editá-lo.`,
	MsgCharacterAdded:     "Personagem adicionado com sucesso!",
	MsgCharacterDeleted:   "Personagem excluído com sucesso!",
	MsgCharacterNotFound:  "Personagem não encontrado.",
	MsgCharacterDenied:    "Personagem não encontrado ou você não tem permissão para alterá-lo.",
	MsgCharacterUpdated:   "Personagem atualizado com sucesso!",
	MsgCharacterBadField:  "Campo inválido. Campos válidos são: description, server, image.",
	MsgNoCharacters:       "Não há personagens disponíveis no momento.",
	MsgCharacterList:      "Lista de Personagens",
	MsgInvalidImageURL:    "URL da imagem inválida. Certifique-se de fornecer uma URL válida começando com http:// ou https://.",
	MsgRollCreated:        "Roll criado com sucesso!",
	MsgRollDeleted:        "Roll excluído com sucesso!",
	MsgRollNotFound:       "Roll não encontrado.",
	MsgRollDenied:         "Roll não encontrado ou você não tem permissão para excluí-lo.",
	MsgRollTaken:          "Já existe um roll com esse nome criado por outra pessoa.",
	MsgNoRolls:            "Nenhum roll neste servidor.",
	MsgRollList:           "Rolls deste servidor:",
	MsgNoOptions:          "Forneça pelo menos uma opção.",
	MsgDiceFormat:         "Formato inválido. Use o formato xdy onde x é o número de dados e y é o número de lados.",
	MsgDiceLimits:         "Por favor, mantenha o número de dados entre 1 e 1000 e o número de lados entre 2 e 99999999.",
	MsgDiceResults:        "Resultados do dado %s: %s",
	MsgUserBanned:         "Usuário %s foi banido por %s.",
	MsgBanFailed:          "Erro ao banir %s: %s",
	MsgUserKicked:         "Usuário %s foi expulso por %s.",
	MsgKickFailed:         "Erro ao expulsar %s: %s",
	MsgNoReason:           "motivo não informado",
	MsgRoutineBadTime:     "Formato de horário inválido. Use HH:MM ou HH:MM:SS.",
	MsgRoutineBadChannel:  "Canal inválido.",
	MsgRoutineSet:         "Rotina definida: %s no canal %s com a mensagem:",
	MsgRoutineRemoved:     "Rotina das %s no canal %s foi removida com sucesso.",
	MsgRoutineNotFound:    "Não foi encontrada nenhuma rotina para o horário %s no canal %s.",
	MsgNoRoutines:         "Nenhuma rotina definida no momento.",
	MsgRoutineListHeader:  "Rotinas Definidas:",
	LabelRoutineTime:      "Horário:",
	LabelRoutineChannel:   "Canal:",
	LabelRoutineMessage:   "Mensagem:",
	MsgRoutineSavedMemory: "A rotina está ativa mas não pôde ser salva: %s",

	HelpAddPower:       "Adiciona um novo poder (somente administradores)",
	HelpListPowers:     "Lista todos os poderes",
	HelpDeletePower:    "Exclui um poder",
	HelpGetPower:       "Exibe os detalhes de um poder específico",
	HelpEditPower:      "Edita um campo de um poder específico",
	HelpEditPrefix:     "Edita o prefixo dos comandos do bot",
	HelpPRandom:        "Mostra um poder aleatório",
	HelpPergunta:       "Responde uma pergunta com respostas pré-definidas",
	HelpAddCharacter:   "Adiciona um novo personagem",
	HelpListCharacters: "Lista todos os personagens",
	HelpDeleteChar:     "Exclui um personagem",
	HelpGetCharacter:   "Exibe os detalhes de um personagem específico",
	HelpEditCharacter:  "Edita um campo de um personagem específico",
	HelpAvatar:         "Mostra o avatar do usuário ou do usuário especificado",
	HelpRollCreate:     "Cria um novo roll (somente administradores)",
	HelpRollDelete:     "Exclui um roll (somente administradores)",
	HelpRoll:           "Escolhe uma opção aleatória de um roll",
	HelpRolls:          "Lista os rolls deste servidor",
	HelpChoose:         "Escolhe uma opção aleatória das opções fornecidas",
	HelpDado:           "Rola um dado com x dados de y lados",
	HelpHumor:          "Mostra o humor do bot com você hoje",
	HelpConvertImage:   "Converte uma imagem para link",
	HelpBan:            "Bane um usuário do servidor (requer permissões de banir membros)",
	HelpKick:           "Expulsa um usuário do servidor (requer permissões de expulsar membros)",
	HelpStatus:         "Mostra o status do bot",
	HelpRotina:         "Define uma rotina diária no horário especificado",
	HelpListRotinas:    "Lista todas as rotinas definidas",
	HelpDeleteRotina:   "Remove uma rotina no horário especificado",
	HelpHelp:           "Mostra esta lista",
	HelpHealth:         "Mostra uptime, memória e estado dos plugins (somente donos)",

	MsgHealthHeader:   "Saúde do bot: %s",
	MsgHealthRunning:  "Funcionando",
	MsgHealthDegraded: "Degradado",
	MsgHealthUptime:   "Ativo há: %s",
	MsgHealthRuntime:  "Memória: %s | Goroutines: %s",
	MsgHealthPlugins:  "Plugins:",
	MsgHealthStopped:  "parado",
	HelpPagerNav:       "Vira a página de uma lista",
}
