package api

// Schema is the GraphQL schema served at /graphql.
const Schema = `
schema {
	query: Query
	mutation: Mutation
}

enum AccountKind {
	CHECKING
	SAVINGS
}

enum TransactionKind {
	DEPOSIT
	WITHDRAWAL
}

type Account {
	id: ID!
	balance: Float!
	createdAt: String!
	kind: AccountKind!
}

type Transaction {
	id: ID!
	kind: TransactionKind!
	amount: Float!
	occurredAt: String!
	account: Account!
}

type BalanceStats {
	count: Int!
	sum: Float!
	average: Float!
}

type TransactionStats {
	count: Int!
	sumDeposits: Float!
	sumWithdrawals: Float!
}

type Query {
	instanceId: String!
	allAccounts: [Account!]!
	accountById(id: ID!): Account!
	accountsByKind(kind: AccountKind!): [Account!]!
	totalBalance: BalanceStats!
	allTransactions: [Transaction!]!
	accountTransactions(id: ID!): [Transaction!]!
	transactionStats: TransactionStats!
}

type Mutation {
	openAccount(balance: Float!, kind: AccountKind!): Account!
	deleteAccount(id: ID!): Boolean!
	applyTransaction(kind: TransactionKind!, amount: Float!, accountId: ID!): Transaction!
}
`

// LegacySchema is the French schema used by the first web client, served at
// /graphql/legacy.
const LegacySchema = `
schema {
	query: Query
	mutation: Mutation
}

enum TypeCompte {
	COURANT
	EPARGNE
}

enum TypeTransaction {
	DEPOT
	RETRAIT
}

type Compte {
	id: ID!
	solde: Float!
	dateCreation: String!
	type: TypeCompte!
}

type Transaction {
	id: ID!
	type: TypeTransaction!
	montant: Float!
	date: String!
	compte: Compte!
}

input CompteRequest {
	solde: Float!
	type: TypeCompte!
}

input TransactionRequest {
	type: TypeTransaction!
	montant: Float!
	compteId: ID!
}

type SoldeStats {
	count: Int!
	sum: Float!
	average: Float!
}

type TransactionStats {
	count: Int!
	sumDepots: Float!
	sumRetraits: Float!
}

type Query {
	allComptes: [Compte!]!
	compteById(id: ID!): Compte
	findCompteByType(type: TypeCompte!): [Compte!]!
	totalSolde: SoldeStats!
	allTransactions: [Transaction!]!
	compteTransactions(id: ID!): [Transaction!]!
	transactionStats: TransactionStats!
}

type Mutation {
	saveCompte(compte: CompteRequest!): Compte!
	deleteCompte(id: ID!): Boolean!
	addTransaction(transactionRequest: TransactionRequest!): Transaction!
}
`
