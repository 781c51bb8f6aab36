package domains

const defaultModel = "claude-sonnet-4"

func behavior(temperature float64) Behavior {
	return Behavior{Temperature: temperature, MaxTokens: 4000, Model: defaultModel}
}

var fullLearning = Learning{FromCorrections: true, SuccessfulPatterns: true, CrossDomain: true}

// DefaultConfigs returns the production domain records.
func DefaultConfigs() []Config {
	return []Config{
		{
			Domain:              Communications,
			Name:                "Lucy-Communications",
			Description:         "Email, messaging, Beeper - all communication channels",
			Collections:         []string{"email_history", "beeper_history"},
			KnowledgeCategories: []string{"email_threads", "contacts", "conversations", "message_history", "communication_patterns"},
			Tools:               []string{"search_emails", "get_email_thread", "list_contacts", "search_beeper_chats", "get_conversation_context", "analyze_communication_frequency"},
			Actions:             []string{"find_emails_by_sender", "find_emails_by_topic", "get_conversation_history", "identify_important_contacts", "track_response_times", "summarize_email_threads"},
			Namespace:           "lucy_communications",
			MemoryCategories:    []string{"contact_preferences", "email_patterns", "important_threads", "response_styles", "communication_context"},
			Behavior:            behavior(0.5),
			Learning:            fullLearning,
		},
		{
			Domain:              Projects,
			Name:                "Lucy-Projects",
			Description:         "Project management, Linear, GitHub, task tracking",
			Collections:         []string{"tech_docs_vectors", "email_history"},
			KnowledgeCategories: []string{"projects", "tasks", "issues", "pull_requests", "project_timelines", "team_collaboration"},
			Tools:               []string{"search_linear_issues", "get_github_prs", "track_project_status", "find_project_emails", "analyze_project_velocity"},
			Actions:             []string{"find_project_by_name", "get_project_status", "list_active_tasks", "track_blockers", "summarize_project_updates", "identify_dependencies"},
			Namespace:           "lucy_projects",
			MemoryCategories:    []string{"project_context", "team_members", "project_goals", "blockers", "milestones", "workflow_patterns"},
			Behavior:            behavior(0.6),
			Learning:            fullLearning,
		},
		{
			Domain:              Knowledge,
			Name:                "Lucy-Knowledge",
			Description:         "Tech documentation, research, learning, knowledge base",
			Collections:         []string{"tech_docs_vectors"},
			KnowledgeCategories: []string{"tech_documentation", "api_references", "tutorials", "best_practices", "code_examples", "troubleshooting"},
			Tools:               []string{"search_tech_docs", "get_api_reference", "find_tutorials", "search_code_examples", "get_troubleshooting_guides"},
			Actions:             []string{"answer_technical_question", "find_documentation", "explain_concept", "provide_code_example", "troubleshoot_issue", "recommend_best_practice"},
			Namespace:           "lucy_knowledge",
			MemoryCategories:    []string{"learned_concepts", "frequently_asked", "personal_notes", "bookmarks", "learning_paths", "expertise_areas"},
			Behavior:            behavior(0.4),
			Learning:            fullLearning,
		},
		{
			Domain:              Content,
			Name:                "Lucy-Content",
			Description:         "N8N workflows, automation, content creation",
			Collections:         []string{"tech_docs_vectors"},
			KnowledgeCategories: []string{"n8n_workflows", "automation", "content_templates", "workflow_patterns", "integrations"},
			Tools:               []string{"search_n8n_docs", "find_workflow_examples", "get_integration_docs", "search_automation_patterns"},
			Actions:             []string{"create_workflow", "suggest_automation", "find_integration", "troubleshoot_workflow", "optimize_automation", "generate_content"},
			Namespace:           "lucy_content",
			MemoryCategories:    []string{"workflow_templates", "automation_patterns", "content_preferences", "integration_configs", "successful_automations"},
			Behavior:            behavior(0.7),
			Learning:            fullLearning,
		},
		{
			Domain:              Data,
			Name:                "Lucy-Data",
			Description:         "Qdrant, Supabase, databases, data operations",
			Collections:         []string{"tech_docs_vectors", "email_history"},
			KnowledgeCategories: []string{"database_schemas", "queries", "data_models", "migrations", "performance_optimization", "data_pipelines"},
			Tools:               []string{"search_db_docs", "query_qdrant", "get_schema_info", "find_query_examples", "analyze_performance"},
			Actions:             []string{"write_query", "design_schema", "optimize_query", "troubleshoot_database", "migrate_data", "analyze_data_patterns"},
			Namespace:           "lucy_data",
			MemoryCategories:    []string{"schemas", "query_patterns", "performance_tips", "migration_history", "data_models", "optimization_strategies"},
			Behavior:            behavior(0.3),
			Learning:            fullLearning,
		},
		{
			Domain:              Dev,
			Name:                "Lucy-Dev",
			Description:         "VSCode, Docker, development tools, coding",
			Collections:         []string{"tech_docs_vectors"},
			KnowledgeCategories: []string{"development_setup", "docker_configs", "vscode_extensions", "development_workflows", "debugging", "tooling"},
			Tools:               []string{"search_dev_docs", "find_docker_examples", "get_vscode_config", "search_debugging_guides"},
			Actions:             []string{"setup_dev_environment", "configure_docker", "troubleshoot_build", "optimize_workflow", "debug_issue", "recommend_tools"},
			Namespace:           "lucy_dev",
			MemoryCategories:    []string{"dev_configs", "docker_setups", "build_scripts", "debugging_patterns", "tool_preferences", "workflow_optimizations"},
			Behavior:            behavior(0.5),
			Learning:            fullLearning,
		},
		{
			Domain:              Business,
			Name:                "Lucy-Business",
			Description:         "Business operations, financials, planning",
			Collections:         []string{"email_history", "tech_docs_vectors"},
			KnowledgeCategories: []string{"business_processes", "financials", "planning", "client_relations", "contracts", "invoicing"},
			Tools:               []string{"search_business_emails", "track_invoices", "find_contracts", "analyze_finances"},
			Actions:             []string{"find_client_communication", "track_project_financials", "manage_invoices", "analyze_business_metrics", "plan_resources", "client_reporting"},
			Namespace:           "lucy_business",
			MemoryCategories:    []string{"client_preferences", "contract_terms", "pricing", "business_goals", "financial_patterns", "process_improvements"},
			Behavior:            behavior(0.4),
			Learning:            fullLearning,
		},
		{
			Domain:              Personal,
			Name:                "Lucy-Personal",
			Description:         "Personal assistant, scheduling, reminders, preferences",
			Collections:         []string{"email_history", "beeper_history"},
			KnowledgeCategories: []string{"personal_preferences", "schedules", "reminders", "personal_notes", "habits", "goals"},
			Tools:               []string{"search_personal_emails", "track_habits", "manage_reminders", "find_personal_notes"},
			Actions:             []string{"schedule_task", "set_reminder", "track_habit", "manage_goals", "personal_search", "preference_tracking"},
			Namespace:           "lucy_personal",
			MemoryCategories:    []string{"preferences", "habits", "goals", "schedules", "personal_context", "important_dates"},
			Behavior:            behavior(0.6),
			Learning:            fullLearning,
		},
		{
			Domain:              Orchestrator,
			Name:                "Lucy-Orchestrator",
			Description:         "Coordinates all Lucy assistants, routes queries, manages cross-domain tasks",
			Collections:         []string{"email_history", "beeper_history", "tech_docs_vectors"},
			KnowledgeCategories: []string{"routing_patterns", "cross_domain_tasks", "assistant_capabilities", "workflow_orchestration"},
			Tools:               []string{"route_to_assistant", "coordinate_multi_domain", "aggregate_results", "manage_context_sharing"},
			Actions:             []string{"analyze_query", "route_request", "coordinate_assistants", "aggregate_responses", "manage_cross_domain", "optimize_workflow"},
			Namespace:           "lucy_orchestrator",
			MemoryCategories:    []string{"routing_decisions", "successful_workflows", "assistant_specialties", "cross_domain_patterns", "optimization_strategies"},
			Behavior:            behavior(0.5),
			Learning:            fullLearning,
		},
	}
}

// DefaultRegistry builds the registry from DefaultConfigs.
func DefaultRegistry() (*Registry, error) {
	return NewRegistry(DefaultConfigs()...)
}
