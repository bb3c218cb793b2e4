// Package i18n holds the English and French UI strings.
package i18n

import "sort"

// Fallback is the language used when a key is missing.
const Fallback = "en"

var catalogs = map[string]map[string]string{
	"en": {
		"dashboard":                "Dashboard",
		"tables":                   "Tables",
		"settings":                 "Settings",
		"help":                     "Help",
		"recordsCount":             "records",
		"search":                   "Search",
		"add":                      "Add",
		"edit":                     "Edit",
		"delete":                   "Delete",
		"save":                     "Save",
		"cancel":                   "Cancel",
		"confirmDelete":            "Are you sure you want to delete this record?",
		"noRecords":                "No records found",
		"loading":                  "Loading...",
		"tableSchema":              "Table Schema",
		"addRecord":                "Add Record",
		"editRecord":               "Edit Record",
		"editCell":                 "Edit cell",
		"deleteRecord":             "Delete Record",
		"refresh":                  "Refresh",
		"back":                     "Back",
		"next":                     "Next",
		"previous":                 "Previous",
		"emptyValue":               "Empty",
		"totalTables":              "Total Tables",
		"totalRecords":             "Total Records",
		"storageUsed":              "Storage Used",
		"lastActivity":             "Last Activity",
		"recordsByTable":           "Records by Table",
		"recentActivity":           "Recent Activity",
		"newRecordCreated":         "New record created",
		"recordsUpdated":           "Records updated",
		"recordsDeleted":           "Records deleted",
		"noTablesFound":            "No tables found",
		"viewTable":                "View Table",
		"tableNotFound":            "Table not found",
		"backToTables":             "Back to Tables",
		"connect":                  "Connect",
		"configure":                "Configure",
		"supabaseUrl":              "Supabase URL",
		"supabaseKey":              "Supabase API Key",
		"serviceKey":               "Service Role Key (optional)",
		"welcomeToAdminDB":         "Welcome to supadmin",
		"connectToSupabase":        "Connect to Supabase",
		"enterSupabaseCredentials": "Enter your Supabase credentials to get started",
		"selfHosted":               "Self-hosted",
		"hostedOnSupabase":         "Hosted on Supabase.com",
		"customizeTableNames":      "Customize Table Names",
		"language":                 "Language",
		"english":                  "English",
		"french":                   "French",
		"storageType":              "Settings Storage",
		"storageLocal":             "Local",
		"storageRemote":            "Remote (Supabase)",
		"hidden":                   "Hidden",
		"visible":                  "Visible",
		"displayName":              "Display Name",
		"disconnect":               "Disconnect",
		"connecting":               "Connecting...",
		"invalidUrl":               "Invalid URL",
		"invalidKey":               "Invalid API key",
		"connectionFailed":         "Connection failed",
		"details":                  "Details",
		"json":                     "JSON",
		"history":                  "History",
		"page":                     "Page",
		"of":                       "of",
		"export":                   "Export",
		"exported":                 "Exported",
		"noHistory":                "No activity recorded for this record",
		"noActivity":               "No recent activity",
		"required":                 "required",
		"primaryKey":               "primary key",
		"never":                    "Never",
		"notAvailable":             "n/a",
		"saved":                    "Saved",
		"actionFailed":             "Action failed",
		"cannotBeUndone":           "This action cannot be undone.",
		"connected":                "Connected to",
		"disconnected":             "Disconnected",
		"notConnected":             "Not connected",
		"quit":                     "Quit",
		"switchPane":               "Switch pane",
		"tabs":                     "Tabs",
		"created":                  "Created",
		"updated":                  "Updated",
		"deleted":                  "Deleted",
		"noChanges":                "No changes",
		"saving":                   "Saving...",
		"nextField":                "Next field",
		"toggle":                   "Toggle",
		"rename":                   "Rename",
		"resetName":                "Reset name",
		"connection":               "Connection",
		"host":                     "Host",
		"serviceKeySet":            "Service key",
		"yes":                      "Yes",
		"no":                       "No",
		"keyboardShortcuts":        "Keyboard Shortcuts",
		"global":                   "Global",
		"navigation":               "Navigation",
		"toggleSidebar":            "Toggle sidebar",
		"open":                     "Open",
		"close":                    "Close",
		"preferencesSaved":         "Preferences saved",
	},
	"fr": {
		"dashboard":                "Tableau de bord",
		"tables":                   "Tables",
		"settings":                 "Paramètres",
		"help":                     "Aide",
		"recordsCount":             "enregistrements",
		"search":                   "Rechercher",
		"add":                      "Ajouter",
		"edit":                     "Modifier",
		"delete":                   "Supprimer",
		"save":                     "Enregistrer",
		"cancel":                   "Annuler",
		"confirmDelete":            "Êtes-vous sûr de vouloir supprimer cet enregistrement ?",
		"noRecords":                "Aucun enregistrement trouvé",
		"loading":                  "Chargement...",
		"tableSchema":              "Schéma de la table",
		"addRecord":                "Ajouter un enregistrement",
		"editRecord":               "Modifier l'enregistrement",
		"editCell":                 "Modifier la cellule",
		"deleteRecord":             "Supprimer l'enregistrement",
		"refresh":                  "Rafraîchir",
		"back":                     "Retour",
		"next":                     "Suivant",
		"previous":                 "Précédent",
		"emptyValue":               "Vide",
		"totalTables":              "Total des tables",
		"totalRecords":             "Total des enregistrements",
		"storageUsed":              "Espace utilisé",
		"lastActivity":             "Dernière activité",
		"recordsByTable":           "Enregistrements par table",
		"recentActivity":           "Activité récente",
		"newRecordCreated":         "Nouvel enregistrement créé",
		"recordsUpdated":           "Enregistrements mis à jour",
		"recordsDeleted":           "Enregistrements supprimés",
		"noTablesFound":            "Aucune table trouvée",
		"viewTable":                "Voir la table",
		"tableNotFound":            "Table non trouvée",
		"backToTables":             "Retour aux tables",
		"connect":                  "Connecter",
		"configure":                "Configurer",
		"supabaseUrl":              "URL Supabase",
		"supabaseKey":              "Clé API Supabase",
		"serviceKey":               "Clé service role (facultative)",
		"welcomeToAdminDB":         "Bienvenue sur supadmin",
		"connectToSupabase":        "Connexion à Supabase",
		"enterSupabaseCredentials": "Entrez vos identifiants Supabase pour commencer",
		"selfHosted":               "Auto-hébergé",
		"hostedOnSupabase":         "Hébergé sur Supabase.com",
		"customizeTableNames":      "Personnaliser les noms de tables",
		"language":                 "Langue",
		"english":                  "Anglais",
		"french":                   "Français",
		"storageType":              "Stockage des paramètres",
		"storageLocal":             "Local",
		"storageRemote":            "Distant (Supabase)",
		"hidden":                   "Masquée",
		"visible":                  "Visible",
		"displayName":              "Nom affiché",
		"disconnect":               "Déconnecter",
		"connecting":               "Connexion...",
		"invalidUrl":               "URL invalide",
		"invalidKey":               "Clé API invalide",
		"connectionFailed":         "Échec de la connexion",
		"details":                  "Détails",
		"json":                     "JSON",
		"history":                  "Historique",
		"page":                     "Page",
		"of":                       "sur",
		"export":                   "Exporter",
		"exported":                 "Exporté",
		"noHistory":                "Aucune activité pour cet enregistrement",
		"noActivity":               "Aucune activité récente",
		"required":                 "obligatoire",
		"primaryKey":               "clé primaire",
		"never":                    "Jamais",
		"notAvailable":             "n/d",
		"saved":                    "Enregistré",
		"actionFailed":             "Échec de l'action",
		"cannotBeUndone":           "Cette action est irréversible.",
		"connected":                "Connecté à",
		"disconnected":             "Déconnecté",
		"notConnected":             "Non connecté",
		"quit":                     "Quitter",
		"switchPane":               "Changer de panneau",
		"tabs":                     "Onglets",
		"created":                  "Créé",
		"updated":                  "Modifié",
		"deleted":                  "Supprimé",
		"noChanges":                "Aucune modification",
		"saving":                   "Enregistrement...",
		"nextField":                "Champ suivant",
		"toggle":                   "Basculer",
		"rename":                   "Renommer",
		"resetName":                "Nom par défaut",
		"connection":               "Connexion",
		"host":                     "Hôte",
		"serviceKeySet":            "Clé service",
		"yes":                      "Oui",
		"no":                       "Non",
		"keyboardShortcuts":        "Raccourcis clavier",
		"global":                   "Général",
		"navigation":               "Navigation",
		"toggleSidebar":            "Afficher la barre latérale",
		"open":                     "Ouvrir",
		"close":                    "Fermer",
		"preferencesSaved":         "Préférences enregistrées",
	},
}

// T returns the string for key in lang, falling back to English and then
// to the key itself.
func T(lang, key string) string {
	if s, ok := catalogs[lang][key]; ok {
		return s
	}
	if s, ok := catalogs[Fallback][key]; ok {
		return s
	}
	return key
}

// Languages lists the supported language codes.
func Languages() []string {
	out := make([]string, 0, len(catalogs))
	for l := range catalogs {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Supported reports whether lang has a catalog.
func Supported(lang string) bool {
	_, ok := catalogs[lang]
	return ok
}

// Translator binds a language.
type Translator func(key string) string

// For returns a Translator for lang.
func For(lang string) Translator {
	return func(key string) string { return T(lang, key) }
}
