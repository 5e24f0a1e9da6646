package service

import (
	"context"
	"fmt"
	"math"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/port"
	maindomain "github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/observability"
	mainport "github.com/boddenberg/crypto-companion-bfa-go/internal/port"

	"go.uber.org/zap"
)

// Handler names, as exposed in delegatedTo.
const (
	HandlerInvestment  = "ai-chat"
	HandlerTransaction = "transaction-chat"
	HandlerEducation   = "education-chat"
	HandlerHome        = "home-chat"
)

// VolatilityThreshold is the absolute 24h change (percent) of the reserve
// asset that adds an alert to the investment greeting.
const VolatilityThreshold = 10.0

// Deps are the collaborators shared by the domain handlers.
type Deps struct {
	// Completer serves classification everywhere and the main completion of
	// the transaction and education handlers.
	Completer port.Completer
	// InvestmentCompleter serves the investment handler. Nil means Completer.
	InvestmentCompleter port.Completer
	Oracle              mainport.PriceOracle
	// Store is nil when no row store is configured; record-backed context
	// is then skipped.
	Store     mainport.RowStore
	Knowledge port.KnowledgeSource
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// ============================================================
// Investment advisor (ai-chat)
// ============================================================

const investmentPersona = `Eres un asesor financiero basado en inteligencia artificial especializado en inversiones Web3. Ayudas al usuario a analizar su portafolio, das recomendaciones personalizadas cuando te las pide y creas tareas programadas (como compras recurrentes). Respondes siempre en español, con un tono profesional, claro y cercano, sin tecnicismos innecesarios.

Reglas:
1. Tu objetivo es maximizar la rentabilidad del portafolio considerando el perfil de riesgo y el objetivo del usuario.
2. No hagas recomendaciones que el usuario no pidió, salvo ante una alerta crítica (alta volatilidad o riesgo inminente).
3. Cuando el usuario quiera programar una tarea, añade al final de tu mensaje un JSON con este formato exacto entre marcadores ###TASK_JSON###:

###TASK_JSON###
{
  "id": "task-[número único]",
  "title": "[descripción clara de la tarea]",
  "type": "[buy|sell|transfer|stake]",
  "amount": "[cantidad como texto]",
  "token": "[símbolo, ej: BTC, ETH, SOL]",
  "network": "[red, ej: Ethereum, Solana, Polygon]",
  "gasEstimate": "[estimación de gas como texto, ej: $2.50]"
}
###TASK_JSON###

La tarea no se ejecuta hasta que el usuario la apruebe.`

var investmentAssets = []MarketAsset{
	{AssetID: maindomain.AssetBitcoin, Name: "Bitcoin", Symbol: "BTC", Currencies: []string{"usd"}},
	{AssetID: maindomain.AssetEthereum, Name: "Ethereum", Symbol: "ETH", Currencies: []string{"usd"}},
}

// NewInvestmentHandler builds the ai-chat handler.
func NewInvestmentHandler(d Deps) *Engine {
	completer := d.InvestmentCompleter
	if completer == nil {
		completer = d.Completer
	}

	var portfolios mainport.PortfolioStore
	if d.Store != nil {
		portfolios = d.Store
	}
	portfolio := NewPortfolioStrategy(portfolios, d.Logger)

	return NewEngine(DomainSpec{
		Name:     HandlerInvestment,
		Taxonomy: domain.InvestmentTaxonomy,
		Persona:  investmentPersona,
		Greeting: func(ctx context.Context, req *domain.ChatRequest) string {
			p := portfolio.Load(ctx, req.UserID)
			greeting := fmt.Sprintf("¡Hola %s! Soy tu asistente de inversión. ¿Cómo puedo ayudarte hoy?", p.OwnerName)
			if alert := VolatilityAlert(ctx, d.Oracle); alert != "" {
				greeting += "\n\n" + alert
			}
			return greeting
		},
		Strategies: []ContextStrategy{
			portfolio,
			NewMarketStrategy(d.Oracle, investmentAssets, false, d.Metrics, d.Logger, domain.LabelMarket),
		},
		Fences: []string{domain.FenceTask},
	}, completer, d.Metrics, d.Logger)
}

// VolatilityAlert returns the alert line when bitcoin moved at least
// VolatilityThreshold percent in 24h, or "" otherwise (including when the
// quote is unavailable).
func VolatilityAlert(ctx context.Context, oracle mainport.PriceOracle) string {
	if oracle == nil {
		return ""
	}
	q, err := oracle.Quote(ctx, maindomain.AssetBitcoin, "usd")
	if err != nil || q.Change24hPc == nil {
		return ""
	}
	change := *q.Change24hPc
	if math.Abs(change) < VolatilityThreshold {
		return ""
	}
	return fmt.Sprintf("🚨 **ALERTA DE VOLATILIDAD**: Se ha detectado un cambio significativo en Bitcoin en las últimas 24h (%.2f%%). Recomiendo revisar tu portafolio.", change)
}

// ============================================================
// Transactions assistant (transaction-chat)
// ============================================================

// TransactionGreeting is returned on the first message.
const TransactionGreeting = "¡Hola! Soy tu asistente de transacciones. Puedo ayudarte a enviar dinero, registrar contactos y pagar servicios. ¿Qué necesitas hacer hoy?"

const transactionPersona = `Eres un asistente experto en transferencias de criptomonedas. Haces que enviar dinero, registrar contactos y pagar servicios sea simple y seguro. Sé breve, usa lenguaje claro y verifica los datos antes de proponer cualquier operación.

Capacidades:
- Transferencias de criptomonedas a contactos.
- Registro de contactos, solo con nombre, email y número de teléfono; no pidas wallet.
- Pago de servicios con cripto.
- Precios actuales y conversiones; ofrece convertir pesos mexicanos (MXN) a la cripto equivalente usando los precios de mercado que recibes.

Cuando detectes una intención clara de acción, añade al final de tu mensaje un JSON entre marcadores ###ACTION_JSON### con uno de estos formatos:

Transferencia:
###ACTION_JSON###
{"id": "action-[número único]", "type": "transfer", "data": {"amount": "[cantidad]", "token": "[símbolo]", "recipient_name": "[nombre]", "recipient_email": "[email]", "description": "[descripción]"}}
###ACTION_JSON###

Registro de contacto:
###ACTION_JSON###
{"id": "action-[número único]", "type": "contact_register", "data": {"name": "[nombre]", "email": "[email]", "phone": "[teléfono]"}}
###ACTION_JSON###

Pago de servicio:
###ACTION_JSON###
{"id": "action-[número único]", "type": "service_payment", "data": {"service_name": "[servicio]", "amount": "[monto]", "token": "[cripto]", "description": "[descripción]"}}
###ACTION_JSON###

Nada se ejecuta hasta que el usuario lo apruebe. Responde siempre en español, de forma amigable y profesional.`

var transactionAssets = []MarketAsset{
	{AssetID: maindomain.AssetBitcoin, Name: "Bitcoin", Symbol: "BTC", Currencies: []string{"usd", "mxn"}},
	{AssetID: maindomain.AssetEthereum, Name: "Ethereum", Symbol: "ETH", Currencies: []string{"usd", "mxn"}},
	{AssetID: maindomain.AssetTether, Name: "Tether", Symbol: "USDT", Currencies: []string{"usd"}, Decimals: 4, Note: "stablecoin"},
}

// NewTransactionHandler builds the transaction-chat handler.
func NewTransactionHandler(d Deps) *Engine {
	var strategies []ContextStrategy
	if d.Store != nil {
		strategies = append(strategies,
			NewContactStrategy(d.Store),
			NewSavedServicesStrategy(d.Store),
		)
	}
	strategies = append(strategies,
		NewMarketStrategy(d.Oracle, transactionAssets, true, d.Metrics, d.Logger, domain.LabelMarket),
	)

	return NewEngine(DomainSpec{
		Name:     HandlerTransaction,
		Taxonomy: domain.TransactionTaxonomy,
		Persona:  transactionPersona,
		Greeting: func(context.Context, *domain.ChatRequest) string {
			return TransactionGreeting
		},
		Strategies: strategies,
		Fences:     []string{domain.FenceAction},
	}, d.Completer, d.Metrics, d.Logger)
}

// ============================================================
// Financial education coach (education-chat)
// ============================================================

// EducationGreeting is returned on the first message.
const EducationGreeting = "¡Hola! Soy Bloky, tu asesor financiero personal. Estoy aquí para ayudarte a entender tus finanzas, aprender sobre criptomonedas y alcanzar tus metas. ¿En qué puedo ayudarte hoy?"

const educationPersona = `Eres Bloky Health, un asesor financiero amigable, empático y educativo. Tu especialidad son las finanzas personales y los activos digitales como Ethereum (ETH).

Reglas:
1. Usa la base de conocimiento que recibes para explicar conceptos financieros y de criptomonedas.
2. Simplifica lo complejo, celebra los logros del usuario y nunca juzgues decisiones pasadas.
3. Cuando detectes un hallazgo útil sobre sus finanzas (ahorro, meta, deuda o inversión), añade al final un JSON entre marcadores ###INSIGHT_JSON###:

###INSIGHT_JSON###
{"id": "insight-[número único]", "type": "[ahorro|meta|deuda|inversion]", "title": "[título corto]", "description": "[explicación]", "data_summary": {}, "source_reference": "[dato en que te basas]", "suggested_action": "[siguiente paso]"}
###INSIGHT_JSON###

4. Si el usuario quiere programar una compra o un ahorro recurrente, añade además una tarea entre marcadores ###TASK_JSON### con los campos id, title, type (buy|sell|transfer|stake), amount, token, network y gasEstimate.

Responde siempre en español de manera amigable y accesible.`

var educationAssets = []MarketAsset{
	{AssetID: maindomain.AssetEthereum, Name: "Ethereum", Symbol: "ETH", Currencies: []string{"usd"}},
	{AssetID: maindomain.AssetBitcoin, Name: "Bitcoin", Symbol: "BTC", Currencies: []string{"usd"}},
}

// NewEducationHandler builds the education-chat handler.
func NewEducationHandler(d Deps) *Engine {
	var strategies []ContextStrategy
	if d.Knowledge != nil {
		strategies = append(strategies, NewKnowledgeStrategy(d.Knowledge))
	}
	if d.Store != nil {
		strategies = append(strategies, NewMovementsStrategy(d.Store))
	}
	strategies = append(strategies,
		NewMarketStrategy(d.Oracle, educationAssets, false, d.Metrics, d.Logger, domain.LabelMarket),
	)

	return NewEngine(DomainSpec{
		Name:     HandlerEducation,
		Taxonomy: domain.EducationTaxonomy,
		Persona:  educationPersona,
		Greeting: func(context.Context, *domain.ChatRequest) string {
			return EducationGreeting
		},
		Strategies: strategies,
		Fences:     []string{domain.FenceTask, domain.FenceInsight},
	}, d.Completer, d.Metrics, d.Logger)
}
