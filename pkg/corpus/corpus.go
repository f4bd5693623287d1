// Package corpus provides the built-in resume document and loads document
// sets from YAML, TOML or JSON files.
package corpus

import (
	_ "embed"

	"github.com/m-mizutani/resumerag/pkg/model"
)

//go:embed resume.txt
var resumeContent string

const (
	DefaultDocumentID   model.DocumentID = "resume-1"
	DefaultDocumentName                  = "AswinKumarGuvvala_Resume"
)

// Greeting is the first message of every conversation over the default corpus
const Greeting = "Hello! I'm Aswin's AI assistant. I can help you learn about his experience, skills, and projects. What would you like to know?"

// GreetingFollowUps are offered together with Greeting
var GreetingFollowUps = []string{
	"What are Aswin's main technical skills?",
	"Tell me about Aswin's work experience",
	"What ML projects has Aswin worked on?",
}

// FollowUps are per-section follow-up questions for the default corpus
var FollowUps = map[model.Section][]string{
	model.SectionSkills: {
		"Tell me about Aswin's experience with Large Language Models",
		"What specific NLP projects has Aswin worked on?",
		"How has Aswin used vector databases in his work?",
	},
	model.SectionExperience: {
		"What were the key achievements in Aswin's role at DUTA?",
		"Tell me about the chatbot project Aswin architected",
		"How did Aswin improve the news summarization model?",
	},
	model.SectionProjects: {
		"What technical challenges did Aswin solve in the GPT-2 project?",
		"Tell me more about the LifeCheck health prediction system",
		"Which technologies did Aswin use in his personal projects?",
	},
	model.SectionEducation: {
		"Where did Aswin complete his Master's degree?",
		"What did Aswin study for his Bachelor's degree?",
		"How does Aswin's education relate to his ML work?",
	},
	model.SectionGeneral: {
		"What are Aswin's main technical skills?",
		"Tell me about Aswin's current role at DUTA",
		"What kind of ML projects has Aswin worked on?",
	},
}

// Default returns the built-in resume document set
func Default() []*model.Document {
	return []*model.Document{
		{
			ID:      DefaultDocumentID,
			Name:    DefaultDocumentName,
			Content: resumeContent,
			Type:    model.DocumentTypeResume,
		},
	}
}
