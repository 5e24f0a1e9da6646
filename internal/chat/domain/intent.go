package domain

// Label is one intent category of a taxonomy.
type Label string

// Investment labels.
const (
	LabelPortfolio    Label = "PORTFOLIO"
	LabelTransactions Label = "TRANSACTIONS"
	LabelMarket       Label = "MARKET"
)

// Transaction labels.
const (
	LabelTransfer        Label = "TRANSFER"
	LabelContactRegister Label = "CONTACT_REGISTER"
	LabelServicePayment  Label = "SERVICE_PAYMENT"
	LabelGeneralQuery    Label = "GENERAL_QUERY"
)

// Education labels.
const (
	LabelEducation        Label = "EDUCATION"
	LabelPersonalAnalysis Label = "PERSONAL_ANALYSIS"
	LabelGoal             Label = "GOAL"
	LabelTransaction      Label = "TRANSACTION"
)

// Home router labels.
const (
	LabelInvestments Label = "INVESTMENTS"
)

// LabelSpec describes one label to the classifier. Aliases are the extra
// tokens a model reply may use for the same label (e.g. ANALYSIS).
type LabelSpec struct {
	Label       Label
	Description string
	Aliases     []string
}

// Taxonomy is an ordered, closed set of labels. Order is match priority.
type Taxonomy struct {
	Name    string
	Labels  []LabelSpec
	Default Label
}

// Has reports whether l belongs to the taxonomy.
func (t Taxonomy) Has(l Label) bool {
	for _, s := range t.Labels {
		if s.Label == l {
			return true
		}
	}
	return false
}

// InvestmentTaxonomy classifies questions for the investment advisor.
var InvestmentTaxonomy = Taxonomy{
	Name: "investment",
	Labels: []LabelSpec{
		{Label: LabelPortfolio, Description: "la consulta trata sobre la distribución, rentabilidad o estado actual de sus inversiones", Aliases: []string{"PORTAFOLIO"}},
		{Label: LabelTransactions, Description: "busca consejos, qué hacer, una sugerencia o un análisis de compras/ventas pasadas o futuras", Aliases: []string{"TRANSACCIONES"}},
		{Label: LabelMarket, Description: "pregunta por el estado actual, precios o eventos de criptomonedas como Bitcoin o Ethereum", Aliases: []string{"MERCADO"}},
	},
	Default: LabelTransactions,
}

// TransactionTaxonomy classifies requests for the transactions assistant.
var TransactionTaxonomy = Taxonomy{
	Name: "transaction",
	Labels: []LabelSpec{
		{Label: LabelTransfer, Description: "quiere enviar dinero o criptomonedas a alguien", Aliases: []string{"TRANSFERENCIA"}},
		{Label: LabelContactRegister, Description: "quiere guardar un contacto nuevo, solo con su número de teléfono", Aliases: []string{"REGISTER", "REGISTRO"}},
		{Label: LabelServicePayment, Description: "quiere pagar un servicio (luz, agua, internet, etc.)", Aliases: []string{"PAYMENT", "PAGO"}},
		{Label: LabelMarket, Description: "pregunta por precios actuales, conversiones de moneda o valores de mercado", Aliases: []string{"MERCADO"}},
		{Label: LabelGeneralQuery, Description: "cualquier otra pregunta o solicitud de información", Aliases: []string{"CONSULTA"}},
	},
	Default: LabelGeneralQuery,
}

// EducationTaxonomy classifies questions for the financial education coach.
var EducationTaxonomy = Taxonomy{
	Name: "education",
	Labels: []LabelSpec{
		{Label: LabelEducation, Description: "conceptos, definiciones, aprender", Aliases: []string{"EDUCACION"}},
		{Label: LabelPersonalAnalysis, Description: "análisis de gastos o finanzas personales", Aliases: []string{"ANALYSIS", "ANALISIS"}},
		{Label: LabelGoal, Description: "objetivos o metas de ahorro", Aliases: []string{"META"}},
		{Label: LabelMarket, Description: "precios de criptomonedas", Aliases: []string{"MERCADO"}},
		{Label: LabelTransaction, Description: "compra, venta o transferencia", Aliases: []string{"TRANSACCION"}},
	},
	Default: LabelEducation,
}

// HomeTaxonomy picks which domain handler answers a home-screen message.
var HomeTaxonomy = Taxonomy{
	Name: "home",
	Labels: []LabelSpec{
		{Label: LabelInvestments, Description: "análisis de portafolio, inversiones, rendimiento, recomendaciones de activos", Aliases: []string{"INVESTMENT", "INVERSIONES", "INVERSION"}},
		{Label: LabelTransactions, Description: "transferencias, pagos, consultas de saldo, historial de movimientos", Aliases: []string{"TRANSACTION", "TRANSACCIONES", "TRANSACCION"}},
		{Label: LabelEducation, Description: "conceptos financieros, aprender sobre criptomonedas, preguntas teóricas, consejos generales", Aliases: []string{"EDUCACION"}},
	},
	Default: LabelEducation,
}
